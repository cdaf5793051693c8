package reinforce

import (
	"fmt"
	"log/slog"
	"strings"
	"unicode/utf8"

	"github.com/HendryAvila/taskgraph/internal/knowledge"
)

// Injection reasons.
const (
	ReasonTurnInterval   = "turn-interval"
	ReasonTokenThreshold = "token-threshold"
)

const (
	charsPerToken = 4
	separator     = "\n\n---\n\n"

	objective = "Keep durable, validated task state for this project and an append-only " +
		"knowledge graph of intents and tool executions, so the work in progress stays " +
		"aligned with its stated goals across long sessions."
	keyPrinciples = "Validate before mutating; preserve architectural consistency with the " +
		"existing codebase; record intent before acting and update its status when done; " +
		"prefer small, verifiable steps."
)

// IntentSource supplies active intents for the Recent Actions section.
// *knowledge.Manager satisfies it.
type IntentSource interface {
	GetActiveIntents() ([]knowledge.Intent, error)
}

// Session is the explicit per-session state record: the turn counter and
// the configuration in force. Enrich reads and advances it.
type Session struct {
	Turn   int
	Config Config
}

// NewSession returns a session at turn 0 with the given config.
func NewSession(cfg Config) Session {
	return Session{Config: cfg}
}

// Result is the outcome of one enrichment.
type Result struct {
	OriginalContent string `json:"originalContent"`
	EnrichedContent string `json:"enrichedContent"`
	Reminder        string `json:"reminder,omitempty"`
	ContextInjected bool   `json:"contextInjected"`
	InjectionReason string `json:"injectionReason,omitempty"`
	TurnNumber      int    `json:"turnNumber"`
	TokenCount      int    `json:"tokenCount"`
}

// EstimateTokens approximates a token count at four characters per token,
// rounding up.
func EstimateTokens(content string) int {
	n := utf8.RuneCountInString(content)
	return (n + charsPerToken - 1) / charsPerToken
}

// Enrich advances the session by one turn and, when a trigger fires,
// appends a reminder to content. The original content is always kept
// verbatim as the prefix of the enriched text. src may be nil; a failing
// src only drops the Recent Actions section.
func Enrich(sess *Session, src IntentSource, content string, logger *slog.Logger) Result {
	sess.Turn++
	res := Result{
		OriginalContent: content,
		EnrichedContent: content,
		TurnNumber:      sess.Turn,
		TokenCount:      EstimateTokens(content),
	}

	cfg := sess.Config
	switch {
	case cfg.TurnInterval > 0 && sess.Turn%cfg.TurnInterval == 0:
		res.InjectionReason = ReasonTurnInterval
	case res.TokenCount > cfg.TokenThreshold:
		res.InjectionReason = ReasonTokenThreshold
	default:
		return res
	}

	var intents []knowledge.Intent
	if cfg.IncludeKnowledgeGraphContext && cfg.MaxRecentIntents > 0 && src != nil {
		active, err := src.GetActiveIntents()
		if err != nil {
			if logger != nil {
				logger.Debug("reinforcement: skipping recent actions", "error", err)
			}
		} else {
			intents = active
		}
	}
	if len(intents) > cfg.MaxRecentIntents {
		intents = intents[:cfg.MaxRecentIntents]
	}

	res.ContextInjected = true
	res.Reminder = buildReminder(sess.Turn, intents)
	res.EnrichedContent = content + separator + res.Reminder
	return res
}

// buildReminder composes the reminder block. intents are expected most
// recent first.
func buildReminder(turn int, intents []knowledge.Intent) string {
	var sb strings.Builder
	fmt.Fprintf(&sb, "## Context Reminder (turn %d)\n\n", turn)
	fmt.Fprintf(&sb, "**Objective**: %s\n\n", objective)
	fmt.Fprintf(&sb, "**Key Principles**: %s\n", keyPrinciples)
	if len(intents) > 0 {
		sb.WriteString("\n**Recent Actions**:\n")
		for _, in := range intents {
			fmt.Fprintf(&sb, "- %s (%s)\n", in.Description, in.Status)
		}
	}
	return sb.String()
}
