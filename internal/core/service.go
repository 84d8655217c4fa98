package core

import (
	"context"
	"fmt"
	"strings"
	"time"
	"unicode/utf8"

	"github.com/google/uuid"
	"go.uber.org/zap"
)

const bodyPreviewBytes = 280

// PipelineService evaluates one email end to end: lexical content
// analysis and sender intel run concurrently, then the trust tier is
// looked up and the decision engine arbitrates. The run document is
// persisted and HITL items enqueued best-effort; neither failure ever
// blocks the verdict.
type PipelineService struct {
	intel  IntelSource
	trust  TrustStore
	audit  AuditStore
	hitl   HITLQueue
	logger *zap.Logger
}

// NewPipelineService creates a new evaluation pipeline. The audit store
// and HITL queue may be nil, in which case those steps are skipped.
func NewPipelineService(
	intel IntelSource,
	trust TrustStore,
	audit AuditStore,
	hitl HITLQueue,
	logger *zap.Logger,
) *PipelineService {
	return &PipelineService{
		intel:  intel,
		trust:  trust,
		audit:  audit,
		hitl:   hitl,
		logger: logger,
	}
}

// Evaluate runs the full pipeline for one email. It never returns an
// error for degraded dependencies: missing intel, trust history, or
// audit storage all fail open, because a failure to decide must not
// block legitimate mail or crash the caller.
func (s *PipelineService) Evaluate(ctx context.Context, req EvaluationRequest) (dec *Decision, err error) {
	started := time.Now()

	defer func() {
		if r := recover(); r != nil {
			s.logger.Error("pipeline panic recovered", zap.Any("panic", r))
			dec = &Decision{
				Verdict: VerdictAllow,
				Reasons: []string{fmt.Sprintf("Internal evaluation error (%v); failing open.", r)},
				HITL:    HITLInfo{Status: HITLSkipped},
			}
			err = nil
		}
	}()

	email := req.Email
	if email == nil {
		email = &CompactEmail{}
	}

	// Content analysis and sender intel have no data dependency on each
	// other; run them concurrently. Each worker carries its own recover:
	// the deferred recover above only covers this goroutine, so a panic
	// in a worker would otherwise kill the process instead of degrading.
	contentCh := make(chan *ContentAnalysis, 1)
	intelCh := make(chan *SenderIntel, 1)

	go func() {
		defer func() {
			if r := recover(); r != nil {
				s.logger.Error("content analysis panicked, treating as unclassified",
					zap.String("from", email.From.Addr), zap.Any("panic", r))
				contentCh <- &ContentAnalysis{
					Classification: ClassSafe,
					Intent:         "informational",
					Tone:           "neutral",
					Urgency:        "routine",
					Reasoning:      []string{"Content analysis failed; no signals extracted."},
				}
			}
		}()
		contentCh <- AnalyzeContent(email.Subject, email.Body)
	}()
	go func() {
		defer func() {
			if r := recover(); r != nil {
				s.logger.Error("sender intel panicked, continuing with unknowns",
					zap.String("from", email.From.Addr), zap.Any("panic", r))
				intelCh <- &SenderIntel{}
			}
		}()
		intel, ierr := s.intel.Assess(ctx, email)
		if ierr != nil || intel == nil {
			if ierr != nil {
				s.logger.Warn("sender intel unavailable, continuing with unknowns",
					zap.String("from", email.From.Addr), zap.Error(ierr))
			}
			intel = &SenderIntel{}
		}
		intelCh <- intel
	}()

	content := <-contentCh
	intel := <-intelCh

	fromDomain := domainOf(email.From.Addr)
	trust := TrustFeedback{}
	if s.trust != nil && fromDomain != "" {
		t, terr := s.trust.TrustFor(ctx, fromDomain)
		if terr != nil {
			s.logger.Warn("trust lookup failed, treating tier as none",
				zap.String("domain", fromDomain), zap.Error(terr))
		} else {
			trust = t
		}
	}

	decision := Decide(DecisionInput{
		Classification: content.Classification,
		Confidence:     content.Confidence,
		SenderRisk:     intel.Risk.Score,
		PHIEntities:    req.PHIEntities,
		PriorVerdict:   req.PriorVerdict,
		TrustTier:      trust.Tier,
	})

	doc := s.buildRunDocument(email, req, content, intel, trust, &decision, started)

	blobKey := ""
	if s.audit != nil {
		key, aerr := s.audit.SaveRun(ctx, doc)
		if aerr != nil {
			s.logger.Error("failed to persist run document",
				zap.String("run_id", doc.RunID), zap.Error(aerr))
		} else {
			blobKey = key
		}
	}

	if s.hitl != nil && decision.HITL.Status == HITLRequired {
		item := HITLItem{
			ID:         doc.RunID,
			Status:     "pending",
			CreatedTS:  doc.Timestamp,
			Verdict:    decision.Verdict,
			Risk:       decision.Risk,
			HasPHI:     req.PHIEntities > 0,
			Intent:     content.Intent,
			FromAddr:   email.From.Addr,
			FromDomain: fromDomain,
			Subject:    email.Subject,
			BlobKey:    blobKey,
		}
		if qerr := s.hitl.Enqueue(ctx, item); qerr != nil {
			s.logger.Error("failed to enqueue HITL item",
				zap.String("run_id", doc.RunID), zap.Error(qerr))
		}
	}

	s.logger.Info("email evaluated",
		zap.String("run_id", doc.RunID),
		zap.String("from", email.From.Addr),
		zap.String("verdict", string(decision.Verdict)),
		zap.String("hitl", string(decision.HITL.Status)),
		zap.Int("risk", decision.Risk),
		zap.String("classification", string(content.Classification)),
		zap.Float64("confidence", content.Confidence),
		zap.Int64("elapsed_ms", doc.ElapsedMS))

	return &decision, nil
}

func (s *PipelineService) buildRunDocument(
	email *CompactEmail,
	req EvaluationRequest,
	content *ContentAnalysis,
	intel *SenderIntel,
	trust TrustFeedback,
	decision *Decision,
	started time.Time,
) *RunDocument {
	now := time.Now().UTC()

	runID := email.MessageID
	if runID == "" {
		runID = "nomsg-" + uuid.NewString()
	}

	queueStatus := "auto_cleared"
	switch {
	case decision.HITL.Status == HITLRequired || decision.HITL.Status == HITLPending:
		queueStatus = "pending"
	case decision.Verdict == VerdictQuarantine:
		queueStatus = "quarantined"
	}

	return &RunDocument{
		Version:   1,
		RunID:     sanitizeRunID(runID),
		Timestamp: now,
		Verdict:   decision.Verdict,
		Reasons:   decision.Reasons,
		Summary: RunSummary{
			Classification:  content.Classification,
			Confidence:      content.Confidence,
			SenderRisk:      intel.Risk.Score,
			SenderRiskNotes: intel.Risk.Notes,
			Intent:          content.Intent,
			Tone:            content.Tone,
			Urgency:         content.Urgency,
			HasPHI:          req.PHIEntities > 0,
		},
		Compact:     compactForAudit(email),
		BodyPreview: previewOf(email.Body),
		PHIEntities: req.PHIEntities,
		Content:     content,
		SenderIntel: intel,
		Trust:       trust,
		HITL:        decision.HITL,
		Queue:       RunQueue{Status: queueStatus, CreatedTS: now},
		ElapsedMS:   time.Since(started).Milliseconds(),
	}
}

// compactForAudit drops the full body from the persisted record; the
// preview field carries the leading bytes instead.
func compactForAudit(email *CompactEmail) CompactEmail {
	c := *email
	c.Body = ""
	return c
}

func previewOf(body string) string {
	if len(body) <= bodyPreviewBytes {
		return body
	}
	cut := body[:bodyPreviewBytes]
	for len(cut) > 0 && !utf8.ValidString(cut) {
		cut = cut[:len(cut)-1]
	}
	return cut
}

func sanitizeRunID(id string) string {
	id = strings.Trim(id, "<>")
	replacer := strings.NewReplacer("/", "_", "\\", "_", " ", "_", ":", "_")
	return replacer.Replace(id)
}

func domainOf(addr string) string {
	parts := strings.Split(addr, "@")
	if len(parts) != 2 {
		return ""
	}
	return strings.ToLower(parts[1])
}
