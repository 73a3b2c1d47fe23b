package hermes

const (
	SubjectPlanSubmit    = "frontier.plan.submit"
	SubjectFrontierStats = "frontier.stats"

	StreamName   = "FRONTIER_EVENTS"
	StreamMaxAge = "720h" // 30 days
)

// StreamSubjects are captured by the JetStream stream. Inbound submissions stay on core NATS.
var StreamSubjects = []string{"frontier.run.>", "frontier.stats"}

func SubjectRunCreated(runID string) string { return "frontier.run." + runID + ".created" }
func SubjectRunClosed(runID string) string  { return "frontier.run." + runID + ".closed" }

func SubjectPlanIngested(runID string) string    { return "frontier.run." + runID + ".plan.ingested" }
func SubjectPlanRejected(runID string) string    { return "frontier.run." + runID + ".plan.rejected" }
func SubjectFrontierChanged(runID string) string { return "frontier.run." + runID + ".frontier.changed" }
func SubjectActionCredited(runID string) string  { return "frontier.run." + runID + ".action.credited" }
