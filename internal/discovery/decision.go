package discovery

import (
	"encoding/json"

	"github.com/google/uuid"
	"gorm.io/datatypes"

	"github.com/threadline-hq/threadline-backend/internal/data/repos"
	types "github.com/threadline-hq/threadline-backend/internal/domain"
	"github.com/threadline-hq/threadline-backend/internal/pkg/dbctx"
	"github.com/threadline-hq/threadline-backend/internal/platform/logger"
)

// Decision is the outcome for one (artifact, candidate) pair.
type Decision struct {
	CreateLink bool
	ShadowOnly bool

	Method           string
	FinalScore       float64
	RelationshipType string
	Breakdown        SignalBreakdown
}

// DecisionEngine applies the threshold policy. Its configuration is fixed at
// construction; shadow evaluations are persisted for every pair regardless of
// which branch fires, and a persistence failure never blocks the decision.
type DecisionEngine struct {
	cfg     Config
	shadows repos.ShadowEvaluationRepo
	log     *logger.Logger
}

func NewDecisionEngine(cfg Config, shadows repos.ShadowEvaluationRepo, baseLog *logger.Logger) *DecisionEngine {
	return &DecisionEngine{
		cfg:     cfg,
		shadows: shadows,
		log:     baseLog.With("component", "DecisionEngine"),
	}
}

func (e *DecisionEngine) Decide(dbc dbctx.Context, artifact, candidate *types.Artifact, breakdown SignalBreakdown) Decision {
	d := Decision{Breakdown: breakdown}

	det := breakdown.DeterministicScore
	ml := breakdown.MLScore

	switch {
	case det >= e.cfg.DetThreshold:
		d.CreateLink = true
		d.Method = types.MethodDeterministic
		d.FinalScore = det
	case e.cfg.MLEnabled && !e.cfg.MLShadowMode && ml >= e.cfg.MLThreshold:
		d.CreateLink = true
		d.Method = types.MethodMLAssisted
		d.FinalScore = ml
	case e.cfg.MLEnabled && e.cfg.MLShadowMode && ml >= e.cfg.MLThreshold:
		d.ShadowOnly = true
		e.log.Info("Shadow mode: would have linked",
			"artifact_id", artifact.ID, "candidate_id", candidate.ID, "ml_score", ml)
	}

	if d.CreateLink {
		if d.FinalScore >= e.cfg.StrongLinkThreshold {
			d.RelationshipType = types.RelationshipStrongContextual
		} else {
			d.RelationshipType = types.RelationshipWeakContextual
		}
	}

	e.persistEvaluation(dbc, artifact, candidate, d)
	return d
}

// persistEvaluation keys the row on the canonical pair, the same ordering the
// link table uses, so evaluating the pair from either side updates one record
// instead of accumulating two.
func (e *DecisionEngine) persistEvaluation(dbc dbctx.Context, artifact, candidate *types.Artifact, d Decision) {
	source, target := Canonicalize(artifact, candidate)

	raw, err := json.Marshal(d.Breakdown)
	if err != nil {
		raw = []byte(`{}`)
	}
	row := &types.ShadowEvaluation{
		ID:                 uuid.New(),
		TenantID:           artifact.TenantID,
		ArtifactID:         source.ID,
		CandidateID:        target.ID,
		DeterministicScore: d.Breakdown.DeterministicScore,
		SemanticScore:      d.Breakdown.SemanticScore,
		StructuralScore:    d.Breakdown.StructuralScore,
		MLScore:            d.Breakdown.MLScore,
		WouldLink:          d.CreateLink || d.ShadowOnly,
		Breakdown:          datatypes.JSON(raw),
	}
	if err := e.shadows.Upsert(dbc, row); err != nil {
		e.log.Warn("Shadow evaluation persist failed, continuing",
			"artifact_id", row.ArtifactID, "candidate_id", row.CandidateID, "error", err)
	}
}
