package memory

import (
	"context"
	"sort"
	"strings"
	"sync"
	"time"
	"unicode"

	"github.com/hupe1980/convopilot/core"
	"github.com/hupe1980/convopilot/logging"
)

// Importance boost heuristics applied when deriving long-term entries from a
// completed interaction.
const (
	baseImportance     = 1.0
	longInputBoost     = 0.2 // inputs longer than longInputChars
	questionBoost      = 0.3 // applied to both entries when the input asks a question
	longResponseBoost  = 0.2 // responses longer than longResponseChars
	longInputChars     = 100
	longResponseChars  = 200
	accessBonusPerHit  = 0.1
	accessBonusCeiling = 0.5
	minKeywordLength   = 4 // query words shorter than this are ignored
)

// Options configures a Manager.
type Options struct {
	// MaxShortTermTurns bounds the per-session turn history (FIFO eviction).
	MaxShortTermTurns int
	// MaxLongTermMemories bounds the per-session long-term memory pool
	// (lowest importance evicted first).
	MaxLongTermMemories int
	// RetrievalTopK is the number of memory contents returned by GetContext.
	RetrievalTopK int
	// SummarizeAfterTurns triggers summary regeneration whenever the
	// short-term history length is a positive multiple of this interval.
	// Zero disables summarization.
	SummarizeAfterTurns int
	// SummaryWindow is the number of most recent interactions handed to the
	// summarizer.
	SummaryWindow int
	// Summarizer condenses recent turns into the rolling summary. Defaults to
	// a heuristic stub; wire the generation backend here for real summaries.
	Summarizer core.Summarizer
	// Logger receives structured diagnostics. Defaults to NoOp.
	Logger logging.Logger
}

// Manager is the in-memory core.MemoryManager implementation. It holds
// per-session short-term history, long-term importance-scored entries and at
// most one rolling summary, all guarded by a single RWMutex.
//
// Concurrent requests for the same session race on read-modify-write of the
// history and memory lists (last-writer-wins); single-flight per session is a
// caller responsibility.
type Manager struct {
	mu        sync.RWMutex
	histories map[string][]core.Interaction
	entries   map[string][]*core.MemoryEntry
	summaries map[string]string

	maxShortTermTurns   int
	maxLongTermMemories int
	retrievalTopK       int
	summarizeAfterTurns int
	summaryWindow       int
	summarizer          core.Summarizer
	logger              logging.Logger
}

// NewManager constructs a Manager with optional overrides.
func NewManager(optFns ...func(o *Options)) *Manager {
	opts := Options{
		MaxShortTermTurns:   10,
		MaxLongTermMemories: 100,
		RetrievalTopK:       5,
		SummarizeAfterTurns: 5,
		SummaryWindow:       5,
		Summarizer:          StubSummarizer{},
		Logger:              logging.NoOpLogger{},
	}
	for _, fn := range optFns {
		fn(&opts)
	}
	if opts.Summarizer == nil {
		opts.Summarizer = StubSummarizer{}
	}
	return &Manager{
		histories:           make(map[string][]core.Interaction),
		entries:             make(map[string][]*core.MemoryEntry),
		summaries:           make(map[string]string),
		maxShortTermTurns:   opts.MaxShortTermTurns,
		maxLongTermMemories: opts.MaxLongTermMemories,
		retrievalTopK:       opts.RetrievalTopK,
		summarizeAfterTurns: opts.SummarizeAfterTurns,
		summaryWindow:       opts.SummaryWindow,
		summarizer:          opts.Summarizer,
		logger:              logging.OrDefault(opts.Logger),
	}
}

// GetContext returns the session's context bundle sized to the query: a copy
// of the short-term history, the top-K relevance-ranked memory contents and
// the current summary. Access stats are bumped on exactly the returned
// entries; importance is never mutated by retrieval.
func (m *Manager) GetContext(sessionID, query string) (core.ContextBundle, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	history := m.histories[sessionID]
	bundle := core.ContextBundle{
		History: append([]core.Interaction(nil), history...),
		Summary: m.summaries[sessionID],
	}

	ranked := rankEntries(query, m.entries[sessionID])
	limit := m.retrievalTopK
	if limit > len(ranked) {
		limit = len(ranked)
	}
	now := time.Now()
	for _, entry := range ranked[:limit] {
		entry.AccessCount++
		accessed := now
		entry.LastAccessed = &accessed
		bundle.Memories = append(bundle.Memories, entry.Content)
	}

	return bundle, nil
}

// StoreInteraction records a completed turn. The interaction is appended to
// short-term history (oldest turns evicted past the cap), mirrored into
// long-term memory as two derived entries and, every SummarizeAfterTurns-th
// turn, the session summary is regenerated from the most recent window.
// Summarization failures are logged and swallowed.
func (m *Manager) StoreInteraction(sessionID string, interaction core.Interaction) error {
	m.mu.Lock()

	history := append(m.histories[sessionID], interaction)
	if len(history) > m.maxShortTermTurns {
		history = history[len(history)-m.maxShortTermTurns:]
	}
	m.histories[sessionID] = history

	inputEntry, responseEntry := deriveEntries(interaction)
	entries := append(m.entries[sessionID], inputEntry, responseEntry)
	if len(entries) > m.maxLongTermMemories {
		sort.SliceStable(entries, func(i, j int) bool {
			return entries[i].Importance > entries[j].Importance
		})
		entries = entries[:m.maxLongTermMemories]
	}
	m.entries[sessionID] = entries

	summarize := m.summarizeAfterTurns > 0 && len(history)%m.summarizeAfterTurns == 0
	var window []core.Interaction
	if summarize {
		start := len(history) - m.summaryWindow
		if start < 0 {
			start = 0
		}
		window = append([]core.Interaction(nil), history[start:]...)
	}
	m.mu.Unlock()

	if summarize {
		summary, err := m.summarizer.Summarize(context.Background(), window)
		if err != nil {
			m.logger.Warn("memory.summarize.failed", "session_id", sessionID, "error", err.Error())
			return nil
		}
		m.mu.Lock()
		m.summaries[sessionID] = summary
		m.mu.Unlock()
	}

	return nil
}

// ClearMemory drops all history, long-term entries and the summary for the session.
func (m *Manager) ClearMemory(sessionID string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.histories, sessionID)
	delete(m.entries, sessionID)
	delete(m.summaries, sessionID)
}

// ExportMemory snapshots a session's memory for an external persistence collaborator.
func (m *Manager) ExportMemory(sessionID string) (core.MemorySnapshot, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	snapshot := core.MemorySnapshot{
		SessionID:  sessionID,
		History:    append([]core.Interaction(nil), m.histories[sessionID]...),
		Summary:    m.summaries[sessionID],
		ExportedAt: time.Now(),
	}
	for _, entry := range m.entries[sessionID] {
		snapshot.Memories = append(snapshot.Memories, *entry)
	}
	return snapshot, nil
}

// ImportMemory restores a previously exported snapshot into the session,
// replacing its current contents. Snapshots larger than the configured caps
// are truncated on the way in, exactly as StoreInteraction would evict: the
// oldest history turns are dropped and only the highest-importance entries
// are kept.
func (m *Manager) ImportMemory(sessionID string, snapshot core.MemorySnapshot) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	history := append([]core.Interaction(nil), snapshot.History...)
	if len(history) > m.maxShortTermTurns {
		history = history[len(history)-m.maxShortTermTurns:]
	}
	m.histories[sessionID] = history

	entries := make([]*core.MemoryEntry, 0, len(snapshot.Memories))
	for _, e := range snapshot.Memories {
		entry := e
		entries = append(entries, &entry)
	}
	if len(entries) > m.maxLongTermMemories {
		sort.SliceStable(entries, func(i, j int) bool {
			return entries[i].Importance > entries[j].Importance
		})
		entries = entries[:m.maxLongTermMemories]
	}
	m.entries[sessionID] = entries

	if snapshot.Summary != "" {
		m.summaries[sessionID] = snapshot.Summary
	} else {
		delete(m.summaries, sessionID)
	}
	return nil
}

// deriveEntries maps an interaction onto its two long-term memory entries,
// applying the importance boost heuristics.
func deriveEntries(interaction core.Interaction) (*core.MemoryEntry, *core.MemoryEntry) {
	inputImportance := baseImportance
	responseImportance := baseImportance

	if len(interaction.Input) > longInputChars {
		inputImportance += longInputBoost
	}
	if strings.Contains(interaction.Input, "?") {
		inputImportance += questionBoost
		responseImportance += questionBoost
	}
	if len(interaction.Response) > longResponseChars {
		responseImportance += longResponseBoost
	}

	input := &core.MemoryEntry{
		ID:         core.NewID(),
		Content:    interaction.Input,
		Timestamp:  interaction.Timestamp,
		Tags:       []string{"input"},
		Source:     "user_input",
		Importance: inputImportance,
	}
	response := &core.MemoryEntry{
		ID:         core.NewID(),
		Content:    interaction.Response,
		Timestamp:  interaction.Timestamp,
		Tags:       []string{"response"},
		Source:     "assistant_response",
		Importance: responseImportance,
	}
	return input, response
}

// rankEntries scores every entry against the query and returns them in
// descending score order. Scoring:
//
//	score = keywordOverlap(query, content) * importance + min(accessCount*0.1, 0.5)
func rankEntries(query string, entries []*core.MemoryEntry) []*core.MemoryEntry {
	type scored struct {
		entry *core.MemoryEntry
		score float64
	}
	keywords := queryKeywords(query)
	ranked := make([]scored, 0, len(entries))
	for _, entry := range entries {
		overlap := keywordOverlap(keywords, entry.Content)
		bonus := float64(entry.AccessCount) * accessBonusPerHit
		if bonus > accessBonusCeiling {
			bonus = accessBonusCeiling
		}
		ranked = append(ranked, scored{entry: entry, score: overlap*entry.Importance + bonus})
	}
	sort.SliceStable(ranked, func(i, j int) bool { return ranked[i].score > ranked[j].score })

	out := make([]*core.MemoryEntry, len(ranked))
	for i, s := range ranked {
		out[i] = s.entry
	}
	return out
}

// queryKeywords extracts the distinct lowercased query words longer than three
// characters. Words are split on any non-alphanumeric rune so trailing
// punctuation ("name?") does not defeat substring matching.
func queryKeywords(query string) []string {
	seen := map[string]struct{}{}
	var keywords []string
	words := strings.FieldsFunc(strings.ToLower(query), func(r rune) bool {
		return !unicode.IsLetter(r) && !unicode.IsDigit(r)
	})
	for _, word := range words {
		if len(word) < minKeywordLength {
			continue
		}
		if _, ok := seen[word]; ok {
			continue
		}
		seen[word] = struct{}{}
		keywords = append(keywords, word)
	}
	return keywords
}

// keywordOverlap counts how many keywords occur as substrings of the content,
// case-insensitively.
func keywordOverlap(keywords []string, content string) float64 {
	lowered := strings.ToLower(content)
	count := 0
	for _, kw := range keywords {
		if strings.Contains(lowered, kw) {
			count++
		}
	}
	return float64(count)
}
