package aggregate

import "github.com/lynks/portal/internal/model"

// Funnel stage names, in order.
const (
	StageVisit   = "visit"
	StageEngage  = "engage"
	StageContact = "contact"
)

// SessionEvent is the minimal tuple the funnel computation needs.
type SessionEvent struct {
	SessionID string
	Kind      string
}

// stageKinds maps each funnel stage to the event kinds that satisfy it.
var stageKinds = []struct {
	name  string
	kinds map[string]bool
}{
	{StageVisit, map[string]bool{model.EventPageView: true}},
	{StageEngage, map[string]bool{model.EventHeartbeat: true, model.EventScrollDepth: true}},
	{StageContact, map[string]bool{
		model.EventCall:         true,
		model.EventEmail:        true,
		model.EventWhatsApp:     true,
		model.EventWebsiteClick: true,
	}},
}

// ComputeFunnel builds the visit -> engage -> contact funnel from raw event
// tuples. A session counts toward a stage only if it also reached every
// earlier stage, so counts are monotone non-increasing by construction.
// Percentages are relative to the first stage (always 100%).
func ComputeFunnel(events []SessionEvent) []model.FunnelStage {
	// Sessions observed per stage, before ordering constraints.
	reached := make([]map[string]bool, len(stageKinds))
	for i := range reached {
		reached[i] = make(map[string]bool)
	}

	for _, e := range events {
		if e.SessionID == "" {
			continue
		}
		for i, stage := range stageKinds {
			if stage.kinds[e.Kind] {
				reached[i][e.SessionID] = true
			}
		}
	}

	// Intersect each stage with its predecessor.
	stages := make([]model.FunnelStage, len(stageKinds))
	survivors := reached[0]
	for i, stage := range stageKinds {
		if i > 0 {
			next := make(map[string]bool)
			for session := range reached[i] {
				if survivors[session] {
					next[session] = true
				}
			}
			survivors = next
		}
		stages[i] = model.FunnelStage{Name: stage.name, Count: int64(len(survivors))}
	}

	if stages[0].Count > 0 {
		base := float64(stages[0].Count)
		for i := range stages {
			stages[i].Percent = float64(stages[i].Count) / base * 100
		}
	}

	return stages
}
