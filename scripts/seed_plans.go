// seed_plans.go generates a synthetic rewrite search and posts its plans to a running
// Frontier server.
//
// Usage:
//
//	go run scripts/seed_plans.go -api http://localhost:8700 -plans 40 -seed 7
package main

import (
	"bytes"
	"encoding/json"
	"flag"
	"fmt"
	"log"
	"math"
	"math/rand"
	"net/http"
	"strings"
)

type createRun struct {
	Name    string   `json:"name"`
	Actions []string `json:"actions"`
}

type planPayload struct {
	PlanID     int64    `json:"plan_id"`
	ParentID   *int64   `json:"parent_id,omitempty"`
	Cost       float64  `json:"cost"`
	Accuracy   *float64 `json:"accuracy,omitempty"`
	Action     string   `json:"action"`
	ConfigPath string   `json:"config_path"`
}

func main() {
	apiURL := flag.String("api", "http://localhost:8700", "Frontier API base URL")
	driverID := flag.String("driver", "seed", "X-Driver-ID header value")
	name := flag.String("name", "synthetic-search", "run name")
	n := flag.Int("plans", 30, "number of plans to generate")
	seed := flag.Int64("seed", 1, "random seed")
	failRate := flag.Float64("fail-rate", 0.1, "fraction of plans reported as failed")
	estimate := flag.Float64("estimate-rate", 0, "fraction of plans sent without an accuracy")
	actionList := flag.String("actions", "decompose,merge,reorder,substitute_model", "comma-separated rewrite actions")
	dryRun := flag.Bool("dry-run", false, "print plans without posting")
	flag.Parse()

	actions := strings.Split(*actionList, ",")
	plans := generate(rand.New(rand.NewSource(*seed)), *n, actions, *failRate, *estimate)

	if *dryRun {
		for _, p := range plans {
			acc := "?"
			if p.Accuracy != nil {
				acc = fmt.Sprintf("%.3f", *p.Accuracy)
			}
			fmt.Printf("[%d] %s cost=%.3f accuracy=%s\n", p.PlanID, p.Action, p.Cost, acc)
		}
		return
	}

	client := &http.Client{}
	var run struct {
		ID string `json:"run_id"`
	}
	if err := post(client, *apiURL+"/api/v1/runs", *driverID, createRun{Name: *name, Actions: actions}, &run); err != nil {
		log.Fatalf("create run: %v", err)
	}
	log.Printf("created run %s", run.ID)

	ingested, skipped, onFrontier := 0, 0, 0
	for _, p := range plans {
		var res struct {
			OnFrontier bool `json:"on_frontier"`
		}
		if err := post(client, *apiURL+"/api/v1/runs/"+run.ID+"/plans", *driverID, p, &res); err != nil {
			log.Printf("skip plan %d: %v", p.PlanID, err)
			skipped++
			continue
		}
		ingested++
		if res.OnFrontier {
			onFrontier++
		}
	}

	log.Printf("done: %d ingested (%d on the frontier when ingested), %d skipped", ingested, onFrontier, skipped)
}

// generate walks a random tree of rewrites. Cost follows a noisy log curve in accuracy,
// so later plans trade cost for accuracy the way real pipeline rewrites do.
func generate(rng *rand.Rand, n int, actions []string, failRate, estimateRate float64) []planPayload {
	plans := make([]planPayload, 0, n)
	for i := 1; i <= n; i++ {
		p := planPayload{
			PlanID:     int64(i),
			Action:     actions[rng.Intn(len(actions))],
			ConfigPath: fmt.Sprintf("plans/plan_%d.yaml", i),
		}
		if i > 1 {
			parent := int64(rng.Intn(i-1) + 1)
			p.ParentID = &parent
		}
		if rng.Float64() < failRate {
			p.Cost = -1
			plans = append(plans, p)
			continue
		}
		acc := 0.3 + 0.65*rng.Float64()
		p.Cost = math.Round((0.5+4*math.Log1p(acc*10)+rng.NormFloat64())*1000) / 1000
		if p.Cost < 0.01 {
			p.Cost = 0.01
		}
		if rng.Float64() >= estimateRate {
			acc = math.Round(acc*1000) / 1000
			p.Accuracy = &acc
		}
		plans = append(plans, p)
	}
	return plans
}

func post(client *http.Client, url, driverID string, payload, out interface{}) error {
	body, err := json.Marshal(payload)
	if err != nil {
		return err
	}
	req, err := http.NewRequest(http.MethodPost, url, bytes.NewReader(body))
	if err != nil {
		return err
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("X-Driver-ID", driverID)

	resp, err := client.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusCreated {
		return fmt.Errorf("status %d", resp.StatusCode)
	}
	return json.NewDecoder(resp.Body).Decode(out)
}
