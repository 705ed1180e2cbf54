// Package mailbox provides durable file-backed message passing between
// the orchestrator and worker roles. Each role owns an inbox directory
// (to_<role>/) holding one JSON file per message; workers append report
// files there through their own tooling and the engine polls them.
//
// Delivery semantics are deliver-once-unread: Receive returns unread
// messages in creation order and marks them read in place, so a second
// Receive without an intervening Send returns nothing. Malformed files
// are logged and skipped; a corrupt entry must never halt the engine.
package mailbox

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"sync"
	"sync/atomic"
	"time"

	"github.com/aasc77/prism/internal/logging"
)

// inboxPrefix is prepended to a role name to form its inbox directory.
const inboxPrefix = "to_"

// Store provides file-based mailbox storage with atomic writes.
type Store struct {
	dir    string
	mu     sync.Mutex
	logger *logging.Logger
}

// NewStore creates a Store rooted at the given mailbox directory.
// Inbox directories are created lazily on first send.
func NewStore(dir string) *Store {
	return &Store{dir: dir, logger: logging.NopLogger()}
}

// SetLogger replaces the store's logger. The default discards output.
func (s *Store) SetLogger(logger *logging.Logger) {
	if logger != nil {
		s.logger = logger
	}
}

// Dir returns the mailbox root directory.
func (s *Store) Dir() string {
	return s.dir
}

// InboxDir returns the inbox directory for a role.
func (s *Store) InboxDir(role string) string {
	return filepath.Join(s.dir, inboxPrefix+role)
}

// Send constructs a Message with a fresh ID, the current timestamp and
// read=false, then persists it under the recipient's inbox. The write
// goes to a temp file first and is renamed into place so readers never
// observe a partial message.
func (s *Store) Send(from, to string, msgType MessageType, content map[string]any) (Message, error) {
	if from == "" {
		return Message{}, fmt.Errorf("mailbox: message sender is required")
	}
	if to == "" {
		return Message{}, fmt.Errorf("mailbox: message recipient is required")
	}
	if msgType == "" {
		return Message{}, fmt.Errorf("mailbox: message type is required")
	}

	msg := Message{
		ID:        generateID(msgType),
		From:      from,
		To:        to,
		Type:      msgType,
		Content:   content,
		Timestamp: time.Now().UTC(),
		Read:      false,
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	dir := s.InboxDir(to)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return Message{}, fmt.Errorf("mailbox: create inbox: %w", err)
	}

	if err := writeMessageFile(filepath.Join(dir, msg.ID+".json"), msg); err != nil {
		return Message{}, err
	}
	return msg, nil
}

// Receive returns messages addressed to role in creation order and
// marks the returned messages read. With unreadOnly (the normal mode)
// already-read messages are excluded, so calling Receive twice without
// an intervening Send yields nothing the second time.
func (s *Store) Receive(role string, unreadOnly bool) ([]Message, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	messages, paths, err := s.readInbox(role)
	if err != nil {
		return nil, err
	}

	var out []Message
	for i, msg := range messages {
		if unreadOnly && msg.Read {
			continue
		}
		if !msg.Read {
			msg.Read = true
			// Persist the read flag; on failure the message is still
			// delivered this cycle and will be re-delivered next time,
			// which the engine tolerates better than losing it.
			if err := writeMessageFile(paths[i], msg); err != nil {
				s.logger.Warn("failed to mark message read",
					"message_id", msg.ID, "error", err.Error())
			}
		}
		out = append(out, msg)
	}
	return out, nil
}

// Peek returns messages addressed to role without marking them read.
func (s *Store) Peek(role string, unreadOnly bool) ([]Message, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	messages, _, err := s.readInbox(role)
	if err != nil {
		return nil, err
	}

	if !unreadOnly {
		return messages, nil
	}
	var out []Message
	for _, msg := range messages {
		if !msg.Read {
			out = append(out, msg)
		}
	}
	return out, nil
}

// History returns every message across all inboxes in chronological
// order, read or not. Used to build classifier context.
func (s *Store) History() ([]Message, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	entries, err := os.ReadDir(s.dir)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, nil
		}
		return nil, fmt.Errorf("mailbox: read mailbox dir: %w", err)
	}

	var all []Message
	for _, entry := range entries {
		if !entry.IsDir() || !strings.HasPrefix(entry.Name(), inboxPrefix) {
			continue
		}
		role := strings.TrimPrefix(entry.Name(), inboxPrefix)
		messages, _, err := s.readInbox(role)
		if err != nil {
			return nil, err
		}
		all = append(all, messages...)
	}

	sortMessages(all)
	return all, nil
}

// Purge removes every inbox. Used by project reset, never by the engine.
func (s *Store) Purge() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	entries, err := os.ReadDir(s.dir)
	if err != nil {
		if os.IsNotExist(err) {
			return nil
		}
		return fmt.Errorf("mailbox: read mailbox dir: %w", err)
	}
	for _, entry := range entries {
		if entry.IsDir() && strings.HasPrefix(entry.Name(), inboxPrefix) {
			if err := os.RemoveAll(filepath.Join(s.dir, entry.Name())); err != nil {
				return fmt.Errorf("mailbox: purge inbox: %w", err)
			}
		}
	}
	return nil
}

// readInbox loads all parsable messages for a role in creation order,
// along with the file path each was loaded from. Unparsable files are
// logged and skipped. A missing inbox is an empty inbox.
func (s *Store) readInbox(role string) ([]Message, []string, error) {
	dir := s.InboxDir(role)

	entries, err := os.ReadDir(dir)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, nil, nil
		}
		return nil, nil, fmt.Errorf("mailbox: read inbox: %w", err)
	}

	var messages []Message
	var paths []string
	for _, entry := range entries {
		if entry.IsDir() || !strings.HasSuffix(entry.Name(), ".json") {
			continue
		}
		path := filepath.Join(dir, entry.Name())
		data, err := os.ReadFile(path)
		if err != nil {
			s.logger.Warn("failed to read message file", "path", path, "error", err.Error())
			continue
		}
		var msg Message
		if err := json.Unmarshal(data, &msg); err != nil {
			// Corrupt entries are skipped, never raised into the caller.
			s.logger.Warn("skipping malformed message", "path", path, "error", err.Error())
			continue
		}
		messages = append(messages, msg)
		paths = append(paths, path)
	}

	sortWithPaths(messages, paths)
	return messages, paths, nil
}

// writeMessageFile writes a message atomically via temp file + rename.
func writeMessageFile(path string, msg Message) error {
	data, err := json.MarshalIndent(msg, "", "  ")
	if err != nil {
		return fmt.Errorf("mailbox: marshal message: %w", err)
	}

	tmp := path + ".tmp"
	if err := os.WriteFile(tmp, data, 0o644); err != nil {
		return fmt.Errorf("mailbox: write message: %w", err)
	}
	if err := os.Rename(tmp, path); err != nil {
		_ = os.Remove(tmp) // best-effort cleanup
		return fmt.Errorf("mailbox: rename message: %w", err)
	}
	return nil
}

// sortMessages orders messages by timestamp, then ID for stability.
func sortMessages(messages []Message) {
	sort.SliceStable(messages, func(i, j int) bool {
		if messages[i].Timestamp.Equal(messages[j].Timestamp) {
			return messages[i].ID < messages[j].ID
		}
		return messages[i].Timestamp.Before(messages[j].Timestamp)
	})
}

// sortWithPaths sorts messages chronologically keeping paths aligned.
func sortWithPaths(messages []Message, paths []string) {
	idx := make([]int, len(messages))
	for i := range idx {
		idx[i] = i
	}
	sort.SliceStable(idx, func(a, b int) bool {
		i, j := idx[a], idx[b]
		if messages[i].Timestamp.Equal(messages[j].Timestamp) {
			return messages[i].ID < messages[j].ID
		}
		return messages[i].Timestamp.Before(messages[j].Timestamp)
	})

	sortedMsgs := make([]Message, len(messages))
	sortedPaths := make([]string, len(paths))
	for pos, i := range idx {
		sortedMsgs[pos] = messages[i]
		sortedPaths[pos] = paths[i]
	}
	copy(messages, sortedMsgs)
	copy(paths, sortedPaths)
}

// idCounter provides per-process uniqueness for message IDs.
var idCounter atomic.Uint64

// generateID produces a unique message ID using type, timestamp, PID,
// and an atomic counter.
func generateID(msgType MessageType) string {
	return fmt.Sprintf("%s-%d-%d-%d", msgType, time.Now().UnixNano(), os.Getpid(), idCounter.Add(1))
}
