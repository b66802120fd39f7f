package turnview

import (
	"math"

	"babelbridge/internal/api"
)

// PlayerScore is one human participant's running average.
type PlayerScore struct {
	UserID      string
	DisplayName string
	ColorIndex  int
	Average     int
	HasScore    bool
}

// PlayerSummary extends PlayerScore with the results-screen figures.
type PlayerSummary struct {
	PlayerScore
	Scores  []int
	Best    int
	Perfect int
}

// Summaries collects every human participant's scores in participant order.
// AI seats are skipped, as are responses from users not seated in conv.
func Summaries(conv *api.Conversation) []PlayerSummary {
	if conv == nil {
		return nil
	}
	var out []PlayerSummary
	index := map[string]int{}
	for _, p := range conv.Participants {
		if p.IsAI || p.UserID == "" {
			continue
		}
		if _, dup := index[p.UserID]; dup {
			continue
		}
		index[p.UserID] = len(out)
		out = append(out, PlayerSummary{PlayerScore: PlayerScore{
			UserID:      p.UserID,
			DisplayName: p.Name(),
			ColorIndex:  len(out),
		}})
	}
	for _, msg := range conv.Messages {
		if msg.Response == nil {
			continue
		}
		if speaker, ok := conv.Participant(msg.Speaker); ok && speaker.IsAI {
			continue
		}
		i, ok := index[msg.Response.UserID]
		if !ok {
			continue
		}
		out[i].Scores = append(out[i].Scores, msg.Response.Score)
	}
	for i := range out {
		s := &out[i]
		if len(s.Scores) == 0 {
			continue
		}
		total := 0
		for _, score := range s.Scores {
			total += score
			if score > s.Best {
				s.Best = score
			}
			if score == 100 {
				s.Perfect++
			}
		}
		s.HasScore = true
		s.Average = int(math.Round(float64(total) / float64(len(s.Scores))))
	}
	return out
}

// Averages is the score bar view of Summaries.
func Averages(conv *api.Conversation) []PlayerScore {
	summaries := Summaries(conv)
	out := make([]PlayerScore, 0, len(summaries))
	for _, s := range summaries {
		out = append(out, s.PlayerScore)
	}
	return out
}

// TurnProgress returns answered turns and the turn cap.
func TurnProgress(conv *api.Conversation) (int, int) {
	if conv == nil {
		return 0, api.MaxTurns
	}
	done := conv.CurrentTurn - 1
	if done < 0 {
		done = 0
	}
	if done > api.MaxTurns {
		done = api.MaxTurns
	}
	return done, api.MaxTurns
}

// ColorIndexFor returns the colour slot of the participant holding role: its
// position among the human participants, or 0 for AI and unknown seats.
func ColorIndexFor(participants []api.Participant, role api.Role) int {
	idx := 0
	for _, p := range participants {
		if p.IsAI {
			continue
		}
		if p.Role == role {
			return idx
		}
		idx++
	}
	return 0
}

// Tier groups score labels for colouring.
type Tier int

const (
	TierUnknown Tier = iota
	TierSuccess
	TierGreat
	TierAlmost
	TierPartial
	TierMiss
)

var scoreTiers = map[string]Tier{
	"Perfect!":        TierSuccess,
	"Excellent":       TierSuccess,
	"Great":           TierGreat,
	"Almost there":    TierAlmost,
	"Partial match":   TierPartial,
	"Keep practising": TierMiss,
}

func TierFor(label string) Tier {
	return scoreTiers[label]
}

// CloseMiss reports whether a score deserves a character-level diff.
func CloseMiss(score int) bool {
	return score >= 60 && score < 100
}
