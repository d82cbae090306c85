package pipeline

import (
	"context"
	"fmt"
	"log"
	"sync"
	"time"

	"github.com/aegismail/threat-engine/internal/domain"
	"github.com/aegismail/threat-engine/internal/domain/attachment"
	"github.com/aegismail/threat-engine/internal/ports"
	"golang.org/x/sync/errgroup"
)

// SandboxOptions controls the attachment layer's optional behaviors
type SandboxOptions struct {
	// CheckSandbox enables the external hash-reputation lookup
	CheckSandbox bool
	// SkipDynamicAnalysis records that dynamic analysis was deliberately
	// skipped; it lowers the layer's confidence
	SkipDynamicAnalysis bool
	// ReputationTimeout bounds each reputation lookup
	ReputationTimeout time.Duration
	// MaxParallel bounds concurrent attachment analyses
	MaxParallel int
}

// DefaultSandboxOptions returns the standard sandbox-layer configuration
func DefaultSandboxOptions() SandboxOptions {
	return SandboxOptions{
		CheckSandbox:      true,
		ReputationTimeout: 3 * time.Second,
		MaxParallel:       4,
	}
}

// SandboxLayer performs deep attachment inspection across all attachments
// of a message and aggregates per-attachment risk into one LayerResult.
type SandboxLayer struct {
	analyzer   *attachment.Analyzer
	reputation ports.HashReputationService // nil disables reputation lookups
	opts       SandboxOptions
}

// NewSandboxLayer creates the attachment inspection layer. reputation may be
// nil when no external reputation collaborator is configured.
func NewSandboxLayer(reputation ports.HashReputationService, opts SandboxOptions) *SandboxLayer {
	if opts.MaxParallel <= 0 {
		opts.MaxParallel = DefaultSandboxOptions().MaxParallel
	}
	if opts.ReputationTimeout <= 0 {
		opts.ReputationTimeout = DefaultSandboxOptions().ReputationTimeout
	}
	return &SandboxLayer{
		analyzer:   attachment.NewAnalyzer(),
		reputation: reputation,
		opts:       opts,
	}
}

// Name returns the layer name
func (l *SandboxLayer) Name() string { return "sandbox" }

type attachmentOutcome struct {
	analysis   attachment.Analysis
	reputation *ports.ReputationResult
	consulted  bool
	failed     bool
}

// Analyze inspects every attachment independently and fault-isolated: one
// attachment's failure never aborts the others.
func (l *SandboxLayer) Analyze(ctx context.Context, msg domain.EmailMessage, tenant TenantContext) (result domain.LayerResult) {
	start := time.Now()
	result = domain.LayerResult{Layer: l.Name(), Signals: []domain.Signal{}}

	// A hard pipeline error must surface as a skipped result, not a panic
	defer func() {
		if r := recover(); r != nil {
			result = domain.LayerResult{
				Layer:            l.Name(),
				Skipped:          true,
				SkipReason:       fmt.Sprintf("attachment analysis pipeline error: %v", r),
				Confidence:       0.2,
				Signals:          []domain.Signal{},
				ProcessingTimeMs: time.Since(start).Milliseconds(),
			}
		}
	}()

	if len(msg.Attachments) == 0 {
		// Nothing to analyze is a certain outcome, not an uncertain one
		return domain.LayerResult{
			Layer:            l.Name(),
			Skipped:          true,
			SkipReason:       "no attachments",
			Confidence:       1.0,
			Signals:          []domain.Signal{},
			ProcessingTimeMs: time.Since(start).Milliseconds(),
		}
	}

	outcomes := make([]attachmentOutcome, len(msg.Attachments))
	var mu sync.Mutex

	group, groupCtx := errgroup.WithContext(ctx)
	group.SetLimit(l.opts.MaxParallel)
	for i := range msg.Attachments {
		group.Go(func() error {
			outcome := l.analyzeOne(groupCtx, msg.Attachments[i])
			mu.Lock()
			outcomes[i] = outcome
			mu.Unlock()
			return nil // failures are per-attachment, never group-fatal
		})
	}
	group.Wait()

	analyzed := 0
	failed := 0
	hadContent := false
	consultedReputation := false
	foundArchive := false
	foundMacros := false
	scores := make([]int, 0, len(outcomes))

	for i, outcome := range outcomes {
		if outcome.failed {
			failed++
			result.Signals = append(result.Signals, domain.Signal{
				Type:     domain.SignalAnalysisError,
				Severity: domain.SeverityInfo,
				Score:    0,
				Detail:   fmt.Sprintf("analysis of attachment %q failed and was skipped", msg.Attachments[i].Filename),
			})
			continue
		}
		analyzed++

		an := outcome.analysis
		if an.Size > 0 {
			hadContent = true
		}
		if an.Archive != nil {
			foundArchive = true
		}
		if len(an.Macros) > 0 {
			foundMacros = true
		}

		score := an.RiskScore
		result.Signals = append(result.Signals, attachmentSignals(an)...)

		if outcome.consulted {
			consultedReputation = true
			if rep := outcome.reputation; rep != nil && rep.Found {
				switch rep.Verdict {
				case ports.HashVerdictMalicious:
					score = 100
					result.Signals = append(result.Signals, domain.Signal{
						Type:     domain.SignalAttachmentMalware,
						Severity: domain.SeverityCritical,
						Score:    100,
						Detail:   fmt.Sprintf("attachment %q matches known malware %s", an.Filename, rep.MalwareFamily),
						Metadata: map[string]string{"malware_family": rep.MalwareFamily},
					})
				case ports.HashVerdictSuspicious:
					if score < 60 {
						score = 60
					}
					result.Signals = append(result.Signals, domain.Signal{
						Type:     domain.SignalAttachmentSuspicious,
						Severity: domain.SeverityWarning,
						Score:    60,
						Detail:   fmt.Sprintf("attachment %q has suspicious reputation", an.Filename),
					})
				}
			}
		}
		scores = append(scores, score)
	}

	if analyzed == 0 {
		// Total failure: distinct from a hard pipeline error (0.2)
		return domain.LayerResult{
			Layer:            l.Name(),
			Skipped:          true,
			SkipReason:       "all attachment analyses failed",
			Confidence:       0.3,
			Signals:          []domain.Signal{},
			ProcessingTimeMs: time.Since(start).Milliseconds(),
		}
	}

	result.Score = aggregateScores(scores)
	result.Confidence = sandboxConfidence(hadContent, consultedReputation, l.opts.SkipDynamicAnalysis, foundArchive, foundMacros)
	result.ProcessingTimeMs = time.Since(start).Milliseconds()
	result.Metadata = map[string]string{
		"attachments_analyzed": fmt.Sprintf("%d", analyzed),
		"attachments_failed":   fmt.Sprintf("%d", failed),
	}
	return result
}

// analyzeOne analyzes a single attachment and optionally consults the
// reputation collaborator. Panics are contained here so one hostile
// attachment cannot take down the whole layer.
func (l *SandboxLayer) analyzeOne(ctx context.Context, att domain.Attachment) (outcome attachmentOutcome) {
	defer func() {
		if r := recover(); r != nil {
			log.Printf("attachment analysis panic for %q: %v", att.Filename, r)
			outcome = attachmentOutcome{failed: true}
		}
	}()

	outcome.analysis = l.analyzer.Analyze(att.Content, att.Filename)

	if l.opts.CheckSandbox && l.reputation != nil && att.ContentHash != "" {
		lookupCtx, cancel := context.WithTimeout(ctx, l.opts.ReputationTimeout)
		defer cancel()

		outcome.consulted = true
		rep, err := l.reputation.CheckHash(lookupCtx, att.ContentHash)
		if err != nil {
			// Fail open: a reputation outage must never abort the layer
			log.Printf("hash reputation lookup failed for %q: %v", att.Filename, err)
			rep = ports.ReputationResult{Verdict: ports.HashVerdictUnknown}
		}
		outcome.reputation = &rep
	}
	return outcome
}

// aggregateScores rewards the single worst attachment fully and gives
// diminishing extra weight to additional risky ones: max score plus 10% of
// every other score above 20, capped at 100.
func aggregateScores(scores []int) int {
	if len(scores) == 0 {
		return 0
	}

	maxIdx := 0
	for i, s := range scores {
		if s > scores[maxIdx] {
			maxIdx = i
		}
	}

	total := float64(scores[maxIdx])
	for i, s := range scores {
		if i != maxIdx && s > 20 {
			total += 0.1 * float64(s)
		}
	}
	if total > 100 {
		total = 100
	}
	return int(total)
}

// sandboxConfidence starts at 0.5 and earns or loses confidence with the
// depth of analysis actually performed, clamped to [0.2, 1.0]
func sandboxConfidence(hadContent, consultedReputation, skippedDynamic, foundArchive, foundMacros bool) float64 {
	confidence := 0.5
	if hadContent {
		confidence += 0.3
	}
	if consultedReputation {
		confidence += 0.1
	}
	if skippedDynamic {
		confidence -= 0.1
	}
	if foundArchive {
		confidence += 0.05
	}
	if foundMacros {
		confidence += 0.05
	}

	if confidence > 1.0 {
		confidence = 1.0
	}
	if confidence < 0.2 {
		confidence = 0.2
	}
	return confidence
}

// attachmentSignals converts one attachment analysis into typed signals
func attachmentSignals(an attachment.Analysis) []domain.Signal {
	var signals []domain.Signal
	add := func(t domain.SignalType, severity domain.Severity, score int, detail string) {
		signals = append(signals, domain.Signal{
			Type:     t,
			Severity: severity,
			Score:    score,
			Detail:   detail,
			Metadata: map[string]string{"filename": an.Filename},
		})
	}

	if an.IsExecutable {
		add(domain.SignalExecutableAttachment, domain.SeverityCritical, 50, fmt.Sprintf("attachment %q is an executable", an.Filename))
	}
	if an.IsScript {
		add(domain.SignalScriptAttachment, domain.SeverityWarning, 40, fmt.Sprintf("attachment %q is a script", an.Filename))
	}
	if an.IsDangerous && !an.IsExecutable && !an.IsScript {
		add(domain.SignalDangerousAttachment, domain.SeverityWarning, 30, fmt.Sprintf("attachment %q has a dangerous file type", an.Filename))
	}
	if len(an.Macros) > 0 {
		severity := domain.SeverityWarning
		if an.HasSuspiciousMacros {
			severity = domain.SeverityCritical
		}
		add(domain.SignalMacroEnabled, severity, 20, fmt.Sprintf("attachment %q contains %d macros", an.Filename, len(an.Macros)))
		if an.HasSuspiciousMacros {
			add(domain.SignalSuspiciousMacro, domain.SeverityCritical, 35, fmt.Sprintf("attachment %q macros use suspicious keywords", an.Filename))
		}
	}
	if an.DoubleExtension {
		add(domain.SignalDoubleExtension, domain.SeverityWarning, 40, fmt.Sprintf("attachment %q has a double extension", an.Filename))
	}
	if an.RTLOverride {
		add(domain.SignalRTLOverride, domain.SeverityCritical, 45, fmt.Sprintf("attachment %q hides its extension with an RTL override", an.Filename))
	}
	if an.ExtensionMismatch {
		add(domain.SignalExtensionMismatch, domain.SeverityWarning, 25, fmt.Sprintf("attachment %q extension does not match its content (%s)", an.Filename, an.FileType.Type))
	}
	if an.Archive != nil {
		if len(an.Archive.NestedArchives) > 0 {
			add(domain.SignalNestedArchive, domain.SeverityWarning, 15, fmt.Sprintf("attachment %q contains nested archives", an.Filename))
		}
		if len(an.Archive.DangerousFiles) > 0 {
			add(domain.SignalArchiveDangerousFile, domain.SeverityWarning, 30, fmt.Sprintf("attachment %q contains %d dangerous files", an.Filename, len(an.Archive.DangerousFiles)))
		}
	}
	if an.PasswordProtected {
		add(domain.SignalPasswordProtected, domain.SeverityWarning, 20, fmt.Sprintf("attachment %q is password protected", an.Filename))
	}
	if an.SizeAnomaly {
		add(domain.SignalSizeAnomaly, domain.SeverityInfo, 10, fmt.Sprintf("attachment %q has an anomalous size (%d bytes)", an.Filename, an.Size))
	}
	if len(an.URLs) > 5 {
		add(domain.SignalURLDensity, domain.SeverityInfo, 10, fmt.Sprintf("attachment %q contains %d URLs", an.Filename, len(an.URLs)))
	}
	return signals
}
