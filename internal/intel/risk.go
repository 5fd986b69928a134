package intel

import (
	"context"
	"fmt"
	"strconv"
	"strings"
)

// #region thresholds
const (
	approveBelow  = 20 // scores below this are approved
	rejectAtLeast = 70 // scores at or above this are rejected

	lowMatchScore = 0.9
)

// #endregion thresholds

// #region score-risk
// ScoreRisk combines document forensics, biometrics and cross-document
// consistency into a 0-100 risk score and a decision with explanations.
func (e *Engine) ScoreRisk(ctx context.Context, in RiskInput) (RiskResult, error) {
	elapsed, err := e.simulate(ctx, e.config.RiskDelay)
	if err != nil {
		return RiskResult{}, err
	}

	score, explanations := assessRisk(in)

	e.mu.Lock()
	if len(explanations) == 0 {
		score = float64(5 + e.rng.Intn(11))
		explanations = []string{
			"All automated checks passed.",
			"Data consistent across documents.",
			"Biometric match score is high.",
		}
	}
	now := e.now()
	e.mu.Unlock()

	final := clampScore(int(score))
	return RiskResult{
		Decision:        decide(final),
		RiskScore:       final,
		XAIExplanations: explanations,
		ModelInfo: ModelInfo{
			RiskModel:         "mock-xgboost-classifier-v1.4",
			XAIModel:          "mock-shap-explainer-v1.1",
			ProcessingTimeSec: round(elapsed.Seconds(), 2),
		},
		AnalyzedAt: now,
	}, nil
}

// #endregion score-risk

// #region assess
// assessRisk returns the raw score and the explanation for every finding.
// No findings means a clean application.
func assessRisk(in RiskInput) (float64, []string) {
	var score float64
	var explanations []string

	// 1. Document forensics
	if in.IDForensics != nil && in.IDForensics.Status != StatusClear {
		score += 70
		explanations = append(explanations, fmt.Sprintf("ID Document flagged for: %s.", in.IDForensics.Status))
	}
	if in.IDForensics == nil || in.AddressForensics == nil {
		score += 90
		explanations = append(explanations, "Critical error: Missing document forensics data.")
	} else if in.AddressForensics.Status != StatusClear {
		score += 40
		explanations = append(explanations, fmt.Sprintf("Address Document flagged for: %s.", in.AddressForensics.Status))
	}

	// 2. Biometrics
	if in.Biometrics == nil {
		score += 90
		explanations = append(explanations, "Critical error: Missing biometric data.")
	} else {
		if in.Biometrics.Status != StatusClear {
			score += 90
			explanations = append(explanations, fmt.Sprintf("Biometric verification failed: %s.", in.Biometrics.Reason))
		}
		if match := in.Biometrics.FaceMatch.MatchScore; match < lowMatchScore {
			score += (1 - match) * 50
			explanations = append(explanations, fmt.Sprintf("Low biometric match score (%s).", strconv.FormatFloat(match, 'f', -1, 64)))
		}
	}

	// 3. Cross-document consistency
	idName := strings.TrimSpace(in.ExtractedData["first_name"] + " " + in.ExtractedData["last_name"])
	addrName := in.ExtractedData["name"]
	if idName != "" && addrName != "" && !strings.EqualFold(idName, addrName) {
		score += 25
		explanations = append(explanations, fmt.Sprintf("Name mismatch: ID says '%s', Address proof says '%s'.", idName, addrName))
	}

	return score, explanations
}

func clampScore(score int) int {
	return min(max(score, 0), 100)
}

func decide(score int) Decision {
	switch {
	case score < approveBelow:
		return DecisionApproved
	case score >= rejectAtLeast:
		return DecisionRejected
	}
	return DecisionManualReview
}

// #endregion assess
