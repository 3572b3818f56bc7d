package rca

import (
	"context"
	"errors"
	"log"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/rcapilot/rcapilot/internal/database"
	"github.com/rcapilot/rcapilot/internal/llm"
	"github.com/rcapilot/rcapilot/internal/vector"
)

const (
	// maxNarrativeTokens bounds the model's structured response
	maxNarrativeTokens = 2048
	// maxSummaryTokens bounds the optional executive-summary call
	maxSummaryTokens = 256
)

// Options controls one generation request
type Options struct {
	// UseHistoricalContext enables retrieval of similar past RCAs
	UseHistoricalContext bool
	// Priority is carried onto the generated record for downstream triage
	Priority string
}

// Orchestrator produces RCA records for closed correlation groups
type Orchestrator struct {
	db         *gorm.DB
	completer  llm.Completer
	retriever  *Retriever
	aggregator *Aggregator
	index      vector.Index

	timeout      time.Duration
	promptBudget int

	mu       sync.Mutex
	inFlight map[uint]struct{}
}

// NewOrchestrator creates an RCA orchestrator. timeout bounds each model
// invocation; promptBudget bounds the alert section of the prompt in
// characters.
func NewOrchestrator(db *gorm.DB, completer llm.Completer, retriever *Retriever, aggregator *Aggregator, index vector.Index, timeout time.Duration, promptBudget int) *Orchestrator {
	return &Orchestrator{
		db:           db,
		completer:    completer,
		retriever:    retriever,
		aggregator:   aggregator,
		index:        index,
		timeout:      timeout,
		promptBudget: promptBudget,
		inFlight:     make(map[uint]struct{}),
	}
}

// Generate produces a new RCA version for a CLOSED group. At most one
// generation runs per group at a time; a concurrent second request is
// rejected with ErrGenerationInProgress. The group's membership is read as
// a snapshot and never mutated. Either the full RCA commits or nothing does.
func (o *Orchestrator) Generate(ctx context.Context, group *database.CorrelationGroup, opts Options) (*database.RCA, error) {
	if err := o.acquire(group.ID); err != nil {
		return nil, err
	}
	defer o.release(group.ID)

	if group.Status != database.GroupStatusClosed {
		return nil, &InvalidStateError{GroupUUID: group.UUID, Reason: "group must be closed before RCA generation"}
	}

	alerts, err := database.AlertsByGroup(o.db, group.ID)
	if err != nil {
		return nil, err
	}
	if len(alerts) == 0 {
		return nil, &InvalidStateError{GroupUUID: group.UUID, Reason: "group has no member alerts"}
	}

	var historical []llm.HistoricalCase
	if opts.UseHistoricalContext {
		historical, err = o.retriever.Retrieve(ctx, alerts)
		if err != nil {
			// Retriever degrades internally; any surfaced error is unexpected
			log.Printf("Historical retrieval error for group %s: %v", group.UUID, err)
			historical = nil
		}
	}

	userPrompt := llm.BuildRCAUserPrompt(alerts, historical, o.promptBudget)

	started := time.Now()
	narrative, raw, err := o.invokeModel(ctx, userPrompt)
	if err != nil {
		return nil, err
	}
	latency := time.Since(started)

	// Optional executive summary; failure keeps the narrative's own summary
	if summary := o.executiveSummary(ctx, narrative); summary != "" {
		narrative.Summary = summary
	}

	confidence := o.confidence(narrative, historical, alerts)

	record, err := o.persist(group, narrative, raw, historical, confidence, latency)
	if err != nil {
		return nil, err
	}

	o.indexRCA(ctx, record, alerts)

	log.Printf("RCA %s (v%d) generated for group %s in %s (confidence %.2f)",
		record.UUID, record.Version, group.UUID, latency.Round(time.Millisecond), confidence)
	return record, nil
}

// InFlight reports whether a generation is currently running for the group.
// Advisory: Generate re-checks under the lock before starting.
func (o *Orchestrator) InFlight(groupID uint) bool {
	o.mu.Lock()
	defer o.mu.Unlock()
	_, busy := o.inFlight[groupID]
	return busy
}

func (o *Orchestrator) acquire(groupID uint) error {
	o.mu.Lock()
	defer o.mu.Unlock()
	if _, busy := o.inFlight[groupID]; busy {
		return ErrGenerationInProgress
	}
	o.inFlight[groupID] = struct{}{}
	return nil
}

func (o *Orchestrator) release(groupID uint) {
	o.mu.Lock()
	defer o.mu.Unlock()
	delete(o.inFlight, groupID)
}

// invokeModel calls the model within the generation deadline and parses the
// structured narrative. A parse failure triggers exactly one retry with the
// stricter reformulated prompt; a second failure surfaces the raw text.
func (o *Orchestrator) invokeModel(ctx context.Context, userPrompt string) (*llm.Narrative, string, error) {
	raw, err := o.complete(ctx, llm.RCASystemPrompt(), userPrompt)
	if err != nil {
		return nil, "", err
	}

	narrative, parseErr := llm.ParseNarrative(raw)
	if parseErr == nil {
		return narrative, raw, nil
	}

	log.Printf("Narrative parse failed (%v), retrying with strict prompt", parseErr)
	strictRaw, err := o.complete(ctx, llm.StrictRCASystemPrompt(), userPrompt)
	if err != nil {
		return nil, "", err
	}

	narrative, parseErr = llm.ParseNarrative(strictRaw)
	if parseErr != nil {
		return nil, "", &MalformedResponseError{RawResponse: strictRaw, Cause: parseErr}
	}
	return narrative, strictRaw, nil
}

// complete runs one bounded model invocation and maps transport errors onto
// the generation error taxonomy
func (o *Orchestrator) complete(ctx context.Context, systemPrompt, userPrompt string) (string, error) {
	callCtx, cancel := context.WithTimeout(ctx, o.timeout)
	defer cancel()

	raw, err := o.completer.Complete(callCtx, systemPrompt, userPrompt, maxNarrativeTokens)
	switch {
	case err == nil:
		return raw, nil
	case errors.Is(err, llm.ErrTimeout):
		return "", &GenerationTimeoutError{Cause: err}
	case errors.Is(err, llm.ErrUnavailable):
		return "", &ModelUnavailableError{Cause: err}
	default:
		return "", err
	}
}

func (o *Orchestrator) executiveSummary(ctx context.Context, narrative *llm.Narrative) string {
	callCtx, cancel := context.WithTimeout(ctx, o.timeout/2)
	defer cancel()

	summary, err := o.completer.Complete(callCtx, llm.SummarySystemPrompt(), llm.BuildSummaryUserPrompt(narrative), maxSummaryTokens)
	if err != nil {
		log.Printf("Executive summary generation failed, keeping narrative summary: %v", err)
		return ""
	}
	return strings.TrimSpace(summary)
}

// confidence combines response completeness, mean retrieval similarity and
// the per-source feedback adjustment into [0,1]
func (o *Orchestrator) confidence(narrative *llm.Narrative, historical []llm.HistoricalCase, alerts []database.Alert) float64 {
	var meanSimilarity float64
	if len(historical) > 0 {
		for _, c := range historical {
			meanSimilarity += c.Similarity
		}
		meanSimilarity /= float64(len(historical))
	}

	base := 0.2 + 0.5*narrative.Completeness() + 0.3*meanSimilarity

	// Dominant bucket: the group's first member decides the adjustment
	adjustment := neutralAdjustment
	if o.aggregator != nil {
		adjustment = o.aggregator.Adjustment(alerts[0].Source, alerts[0].AlertType)
	}

	score := base * adjustment
	if score < 0 {
		return 0
	}
	if score > 1 {
		return 1
	}
	return score
}

// persist writes the new RCA version and flips the group's active-RCA flag
// in one transaction. Membership is not touched.
func (o *Orchestrator) persist(group *database.CorrelationGroup, narrative *llm.Narrative, raw string, historical []llm.HistoricalCase, confidence float64, latency time.Duration) (*database.RCA, error) {
	causes := make([]interface{}, len(narrative.ProbableCauses))
	for i, c := range narrative.ProbableCauses {
		causes[i] = c
	}

	contextRefs := make([]interface{}, len(historical))
	for i, c := range historical {
		contextRefs[i] = map[string]interface{}{
			"rca_uuid":   c.RCAUUID,
			"similarity": c.Similarity,
		}
	}

	record := &database.RCA{
		UUID:               uuid.New().String(),
		CorrelationGroupID: group.ID,
		Active:             true,
		Title:              narrative.Title,
		Summary:            narrative.Summary,
		RootCause:          narrative.RootCause,
		ProbableCauses:     database.JSONB{"ranked": causes},
		Evidence:           narrative.Evidence,
		RecommendedActions: strings.Join(narrative.RecommendedActions, "\n"),
		ConfidenceScore:    confidence,
		Status:             database.RCAStatusOpen,
		RawResponse:        raw,
		ModelLatencyMs:     latency.Milliseconds(),
		HistoricalContext:  database.JSONB{"cases": contextRefs},
		GeneratedAt:        time.Now(),
	}

	err := o.db.Transaction(func(tx *gorm.DB) error {
		version, err := database.NextRCAVersion(tx, group.ID)
		if err != nil {
			return err
		}
		record.Version = version

		// Previous versions are retained for audit but lose the active flag
		if err := tx.Model(&database.RCA{}).
			Where("correlation_group_id = ? AND active = ?", group.ID, true).
			Update("active", false).Error; err != nil {
			return err
		}

		if err := tx.Create(record).Error; err != nil {
			return err
		}

		return tx.Model(&database.CorrelationGroup{}).
			Where("id = ?", group.ID).
			Update("has_active_rca", true).Error
	})
	if err != nil {
		return nil, err
	}
	return record, nil
}

// indexRCA stores the group's representative embedding under the new RCA's
// id so future generations can retrieve it. Best effort: indexing failures
// never fail a committed generation.
func (o *Orchestrator) indexRCA(ctx context.Context, record *database.RCA, alerts []database.Alert) {
	embedding, err := o.retriever.GroupEmbedding(ctx, alerts)
	if err != nil {
		log.Printf("Skipping vector indexing for RCA %s: %v", record.UUID, err)
		return
	}
	if err := o.index.Upsert(record.UUID, embedding); err != nil {
		log.Printf("Failed to index RCA %s: %v", record.UUID, err)
	}
}

// UpdateStatus applies a lifecycle transition to an RCA, enforcing the
// forward-only state machine (closed records may only be reopened).
func (o *Orchestrator) UpdateStatus(rcaUUID string, next database.RCAStatus) (*database.RCA, error) {
	record, err := database.GetRCAByUUID(o.db, rcaUUID)
	if err != nil {
		return nil, err
	}

	if !record.Status.CanTransitionTo(next) {
		return nil, &InvalidStateError{
			GroupUUID: rcaUUID,
			Reason:    "RCA cannot transition from " + string(record.Status) + " to " + string(next),
		}
	}

	updates := map[string]interface{}{"status": next}
	if next == database.RCAStatusClosed {
		now := time.Now()
		updates["resolved_at"] = now
		updates["resolution_minutes"] = int(now.Sub(record.CreatedAt).Minutes())
	}
	if next == database.RCAStatusOpen && record.Status == database.RCAStatusClosed {
		updates["resolved_at"] = nil
		updates["resolution_minutes"] = 0
	}

	if err := o.db.Model(record).Updates(updates).Error; err != nil {
		return nil, err
	}
	record.Status = next
	return record, nil
}
