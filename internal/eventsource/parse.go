package eventsource

import (
	"bufio"
	"fmt"
	"io"
	"regexp"
	"strings"
	"time"

	"github.com/cleared-dev/ledgeraudit/internal/model"
)

const tsLayout = "2006-01-02T15:04:05.000Z"

var (
	tsRe         = regexp.MustCompile(`^(\d{4}-\d{2}-\d{2}T\d{2}:\d{2}:\d{2}\.\d{3}Z)\s`)
	blockStartRe = regexp.MustCompile(`(?i)Start syncing the balance\s*\{`)
	procMsgRe    = regexp.MustCompile(`(?i)INFO\s+Processing message\s+([a-f0-9-]{36})`)
	skipRe       = regexp.MustCompile(`(?i)Skipping the balance sync for create subscription`)
	txStartRe    = regexp.MustCompile(`(?i)transaction\s*:\s*\{`)
	kvLineRe     = regexp.MustCompile(`^\s*([A-Za-z_]\w*)\s*:\s*(.+?)(?:,)?\s*$`)
)

// maxLine bounds a single log line. Sync blocks are multi-line, so lines
// stay short in practice.
const maxLine = 4 << 20

// Parse reads one service log and returns the events it contains, in file
// order. Lines that match nothing are ignored.
func Parse(r io.Reader) ([]model.Event, error) {
	var lines []string
	sc := bufio.NewScanner(r)
	sc.Buffer(make([]byte, 0, 64*1024), maxLine)
	for sc.Scan() {
		lines = append(lines, sc.Text())
	}
	if err := sc.Err(); err != nil {
		return nil, fmt.Errorf("reading log: %w", err)
	}

	var (
		events  []model.Event
		lastMsg string
	)
	for i := 0; i < len(lines); {
		line := lines[i]
		ts := parseTimestamp(line)

		if m := procMsgRe.FindStringSubmatch(line); m != nil {
			lastMsg = m[1]
		}

		if skipRe.MatchString(line) {
			events = append(events, model.Event{
				Timestamp: ts,
				MessageID: lastMsg,
				EventType: model.EventSkipCreateSubscription,
				Raw:       line,
			})
			i++
			continue
		}

		if blockStartRe.MatchString(line) {
			// The opening line counts as depth one whatever else it holds.
			block := []string{line}
			j, depth := i+1, 1
			for j < len(lines) && depth > 0 {
				block = append(block, lines[j])
				depth += strings.Count(lines[j], "{") - strings.Count(lines[j], "}")
				j++
			}
			if fields := parseTransaction(block); len(fields) > 0 {
				ev := eventFromFields(fields)
				ev.Timestamp = ts
				ev.MessageID = lastMsg
				ev.EventType = model.EventBalanceSync
				events = append(events, ev)
			}
			i = j
			continue
		}

		i++
	}
	return events, nil
}

func parseTimestamp(line string) time.Time {
	m := tsRe.FindStringSubmatch(line)
	if m == nil {
		return time.Time{}
	}
	ts, err := time.Parse(tsLayout, m[1])
	if err != nil {
		return time.Time{}
	}
	return ts.UTC()
}

// parseTransaction finds the balanced `transaction: { ... }` object in a
// sync block and returns its flat key/value pairs. Null values are left out.
func parseTransaction(block []string) map[string]string {
	content := strings.Join(block, "\n")
	loc := txStartRe.FindStringIndex(content)
	if loc == nil {
		return nil
	}
	start := loc[1] - 1

	depth, end := 0, -1
	for i := start; i < len(content); i++ {
		switch content[i] {
		case '{':
			depth++
		case '}':
			depth--
		}
		if depth == 0 {
			end = i
			break
		}
	}
	if end < 0 {
		return nil
	}

	fields := make(map[string]string)
	for _, ln := range strings.Split(content[start+1:end], "\n") {
		ln = strings.TrimSpace(ln)
		if ln == "" || strings.HasPrefix(ln, "//") {
			continue
		}
		m := kvLineRe.FindStringSubmatch(ln)
		if m == nil {
			continue
		}
		raw := strings.TrimSpace(m[2])
		raw = strings.TrimSpace(strings.TrimSuffix(raw, ","))
		if v, ok := scalar(raw); ok {
			fields[m[1]] = v
		}
	}
	return fields
}

// scalar unquotes a value. ok is false for null-like values.
func scalar(v string) (string, bool) {
	if len(v) >= 2 {
		if (v[0] == '\'' && v[len(v)-1] == '\'') || (v[0] == '"' && v[len(v)-1] == '"') {
			return v[1 : len(v)-1], true
		}
	}
	switch strings.ToLower(v) {
	case "null", "none":
		return "", false
	}
	return v, true
}

func eventFromFields(f map[string]string) model.Event {
	return model.Event{
		UserID:         f["userId"],
		ID:             f["id"],
		Type:           f["type"],
		Source:         f["source"],
		Action:         f["action"],
		Currency:       f["currency"],
		Amount:         f["amount"],
		VAT:            f["vat"],
		OldBalance:     f["oldBalance"],
		NewBalance:     f["newBalance"],
		PaymentBalance: f["paymentBalance"],
	}
}
