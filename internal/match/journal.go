package match

import (
	"io"
	"os"
	"sync"
	"sync/atomic"
	"time"

	"github.com/goccy/go-json"
	"github.com/rotisserie/eris"
	"github.com/rs/zerolog/log"
	"golang.org/x/time/rate"

	"sumo-arena/internal/game"
)

const (
	JournalBufferSize      = 1024
	JournalMaxPerSec       = 2000
	JournalMaxPerMatch     = 200 // per second
	JournalFlushSize       = 64
	JournalFlushInterval   = 250 * time.Millisecond
	JournalLimiterIdleTime = 10 * time.Minute
)

// JournalEntry is one line of the audit file
type JournalEntry struct {
	Sequence uint64     `json:"seq"`
	MatchID  string     `json:"matchId"`
	Written  int64      `json:"written"` // unix millis
	Event    game.Event `json:"event"`
}

// Journal appends every match log entry to a JSONL file.
// Appends never block the tick task; under pressure the oldest entries are dropped.
type Journal struct {
	buffer    [JournalBufferSize]JournalEntry
	bufMu     sync.Mutex
	writeHead uint64
	readHead  uint64

	globalLimiter *rate.Limiter
	matchLimiters sync.Map // map[string]*matchLimiterEntry

	writerWg sync.WaitGroup
	stopChan chan struct{}
	stopOnce sync.Once
	running  atomic.Bool

	file   io.WriteCloser
	fileMu sync.Mutex

	dropped     atomic.Uint64
	total       atomic.Uint64
	writeErrors atomic.Uint64
}

type matchLimiterEntry struct {
	limiter  *rate.Limiter
	lastUsed atomic.Int64
}

// NewJournal creates a stopped journal
func NewJournal() *Journal {
	return &Journal{
		globalLimiter: rate.NewLimiter(JournalMaxPerSec, JournalMaxPerSec/10),
		stopChan:      make(chan struct{}),
	}
}

// Start opens the file for append and runs the writer
func (j *Journal) Start(path string) error {
	if j.running.Load() {
		return nil
	}
	if path != "" {
		f, err := os.OpenFile(path, os.O_CREATE|os.O_APPEND|os.O_WRONLY, 0o644)
		if err != nil {
			return eris.Wrapf(err, "open journal %s", path)
		}
		j.file = f
	}

	j.running.Store(true)
	j.writerWg.Add(2)
	go j.writerLoop()
	go j.cleanupLoop()
	return nil
}

// Stop flushes what is buffered and closes the file
func (j *Journal) Stop() {
	j.stopOnce.Do(func() {
		j.running.Store(false)
		close(j.stopChan)
		j.writerWg.Wait()

		j.fileMu.Lock()
		if j.file != nil {
			j.file.Close()
		}
		j.fileMu.Unlock()
	})
}

// Append queues one entry. Returns false when rate limited or stopped.
func (j *Journal) Append(matchID string, ev game.Event) bool {
	if !j.running.Load() {
		return false
	}
	if !j.matchLimiter(matchID).Allow() || !j.globalLimiter.Allow() {
		j.dropped.Add(1)
		return false
	}

	j.bufMu.Lock()
	j.writeHead++
	if j.writeHead-j.readHead > JournalBufferSize {
		j.readHead++
		j.dropped.Add(1)
	}
	j.buffer[j.writeHead%JournalBufferSize] = JournalEntry{
		Sequence: j.writeHead,
		MatchID:  matchID,
		Written:  time.Now().UnixMilli(),
		Event:    ev,
	}
	j.bufMu.Unlock()

	j.total.Add(1)
	return true
}

func (j *Journal) matchLimiter(matchID string) *rate.Limiter {
	now := time.Now().UnixNano()
	if v, ok := j.matchLimiters.Load(matchID); ok {
		e := v.(*matchLimiterEntry)
		e.lastUsed.Store(now)
		return e.limiter
	}
	e := &matchLimiterEntry{limiter: rate.NewLimiter(JournalMaxPerMatch, JournalMaxPerMatch/4)}
	e.lastUsed.Store(now)
	actual, _ := j.matchLimiters.LoadOrStore(matchID, e)
	return actual.(*matchLimiterEntry).limiter
}

func (j *Journal) writerLoop() {
	defer j.writerWg.Done()

	ticker := time.NewTicker(JournalFlushInterval)
	defer ticker.Stop()

	batch := make([]JournalEntry, 0, JournalFlushSize)
	for {
		select {
		case <-j.stopChan:
			for {
				batch = j.collect(batch[:0])
				if len(batch) == 0 {
					return
				}
				j.flush(batch)
			}
		case <-ticker.C:
			for {
				batch = j.collect(batch[:0])
				if len(batch) == 0 {
					break
				}
				j.flush(batch)
			}
		}
	}
}

// cleanupLoop forgets limiters of matches that stopped logging
func (j *Journal) cleanupLoop() {
	defer j.writerWg.Done()

	ticker := time.NewTicker(JournalLimiterIdleTime)
	defer ticker.Stop()
	for {
		select {
		case <-j.stopChan:
			return
		case <-ticker.C:
			cutoff := time.Now().Add(-JournalLimiterIdleTime).UnixNano()
			j.matchLimiters.Range(func(key, value interface{}) bool {
				if value.(*matchLimiterEntry).lastUsed.Load() < cutoff {
					j.matchLimiters.Delete(key)
				}
				return true
			})
		}
	}
}

func (j *Journal) collect(batch []JournalEntry) []JournalEntry {
	j.bufMu.Lock()
	defer j.bufMu.Unlock()

	for j.readHead < j.writeHead && len(batch) < JournalFlushSize {
		j.readHead++
		batch = append(batch, j.buffer[j.readHead%JournalBufferSize])
	}
	return batch
}

func (j *Journal) flush(batch []JournalEntry) {
	j.fileMu.Lock()
	defer j.fileMu.Unlock()

	if j.file == nil {
		return
	}
	var firstErr error
	failed := 0
	for _, entry := range batch {
		line, err := json.Marshal(entry)
		if err == nil {
			_, err = j.file.Write(append(line, '\n'))
		}
		if err != nil {
			failed++
			if firstErr == nil {
				firstErr = err
			}
		}
	}
	if failed > 0 {
		j.writeErrors.Add(uint64(failed))
		journalWriteFailures.Add(float64(failed))
		log.Error().Err(firstErr).Int("lost", failed).Int("batch", len(batch)).Msg("❌ journal write failed")
	}
}

// Stats reports journal counters
func (j *Journal) Stats() map[string]interface{} {
	j.bufMu.Lock()
	pending := j.writeHead - j.readHead
	j.bufMu.Unlock()

	return map[string]interface{}{
		"total":       j.total.Load(),
		"dropped":     j.dropped.Load(),
		"writeErrors": j.writeErrors.Load(),
		"pending":     pending,
		"running":     j.running.Load(),
	}
}
