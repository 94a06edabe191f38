package coordinator

import (
	"fmt"
	"math"
	"regexp"
	"strings"
	"sync"
)

const maxFormatTimeCacheEntries = 3600

var (
	formatTimeCacheMu sync.Mutex
	formatTimeCache   = make(map[int]string, 64)
)

// formatTime renders an integer second count as "H:MM:SS", memoized up to
// maxFormatTimeCacheEntries distinct values (R1). Once the cache is full,
// further results are still computed correctly, just not cached.
func formatTime(seconds int) string {
	if seconds < 0 {
		seconds = 0
	}

	formatTimeCacheMu.Lock()
	if s, ok := formatTimeCache[seconds]; ok {
		formatTimeCacheMu.Unlock()
		return s
	}
	formatTimeCacheMu.Unlock()

	h := seconds / 3600
	m := (seconds % 3600) / 60
	s := seconds % 60
	out := fmt.Sprintf("%d:%02d:%02d", h, m, s)

	formatTimeCacheMu.Lock()
	if len(formatTimeCache) < maxFormatTimeCacheEntries {
		formatTimeCache[seconds] = out
	}
	formatTimeCacheMu.Unlock()

	return out
}

var sentenceSplitRegex = regexp.MustCompile(`[.!?]+`)

func round2(f float64) float64 {
	return math.Round(f*100) / 100
}

// FormatSentenceMode implements §4.6's sentence-segmented line layout. It
// is a pure function of its inputs (P6).
func FormatSentenceMode(tokens []ASRToken, sep string, tokenizer SentenceTokenizer) []Line {
	nonEmpty := make([]ASRToken, 0, len(tokens))
	texts := make([]string, 0, len(tokens))
	for _, t := range tokens {
		if t.Text == "" {
			continue
		}
		nonEmpty = append(nonEmpty, t)
		texts = append(texts, t.Text)
	}
	if len(nonEmpty) == 0 {
		return nil
	}

	joined := strings.Join(texts, sep)

	var sentences []string
	if tokenizer != nil {
		sentences = tokenizer.Sentences(joined)
	} else {
		sentences = sentenceSplitRegex.Split(joined, -1)
	}

	lines := make([]Line, 0, len(sentences))
	tokenIdx := 0
	lastEnd := 0.0

	for _, sentence := range sentences {
		sentence = strings.TrimSpace(sentence)
		if sentence == "" {
			continue
		}

		target := len([]rune(sentence))
		var accumulated strings.Builder
		start := tokenIdx
		for tokenIdx < len(nonEmpty) && len([]rune(accumulated.String())) < target {
			accumulated.WriteString(nonEmpty[tokenIdx].Text)
			tokenIdx++
		}
		assigned := nonEmpty[start:tokenIdx]
		if len(assigned) == 0 {
			continue
		}

		speaker := modeSpeaker(assigned)
		end := assigned[len(assigned)-1].EndSec
		lines = append(lines, Line{
			Speaker: speaker,
			Text:    sentence,
			Beg:     formatTime(int(assigned[0].StartSec)),
			End:     formatTime(int(end)),
			Diff:    round2(end - lastEnd),
		})
		lastEnd = end
	}

	// Any tokens left unassigned (sentence splitter left a trailing
	// fragment with no terminal punctuation) form one final line.
	if tokenIdx < len(nonEmpty) {
		assigned := nonEmpty[tokenIdx:]
		var accumulated strings.Builder
		for _, t := range assigned {
			accumulated.WriteString(t.Text)
		}
		speaker := modeSpeaker(assigned)
		end := assigned[len(assigned)-1].EndSec
		lines = append(lines, Line{
			Speaker: speaker,
			Text:    accumulated.String(),
			Beg:     formatTime(int(assigned[0].StartSec)),
			End:     formatTime(int(end)),
			Diff:    round2(end - lastEnd),
		})
	}

	return lines
}

// modeSpeaker returns the most frequent non-negative speaker among tokens,
// ties broken by first occurrence; falls back to the first token's speaker
// if none are attributed.
func modeSpeaker(tokens []ASRToken) int {
	counts := make(map[int]int)
	order := make([]int, 0, len(tokens))
	for _, t := range tokens {
		if t.Speaker < 0 {
			continue
		}
		if _, seen := counts[t.Speaker]; !seen {
			order = append(order, t.Speaker)
		}
		counts[t.Speaker]++
	}
	if len(order) == 0 {
		return tokens[0].Speaker
	}
	best := order[0]
	for _, speaker := range order[1:] {
		if counts[speaker] > counts[best] {
			best = speaker
		}
	}
	return best
}

// FormatSpeakerMode implements §4.6's speaker-grouped line layout. It
// returns the lines plus the text of tokens it surfaced as unattributed
// (to be folded into buffer_diarization by the caller), per the §9 open
// question on how that buffer should be treated. sep joins same-speaker
// token texts and unattributed tail texts, matching FormatSentenceMode
// and the original format_by_speaker's "lines[-1]['text'] += sep +
// token.text" / "sep.join(undiarized_text)" behavior.
func FormatSpeakerMode(tokens []ASRToken, endAttributedSpeakerSec float64, sep string) (lines []Line, diarizationTail string) {
	if len(tokens) == 0 {
		return nil, ""
	}

	type group struct {
		speaker int
		texts   []string
		tokens  []ASRToken
	}

	var groups []group
	var tailTexts []string

	priorSpeaker := 0
	havePrior := false

	for _, t := range tokens {
		effective := t.Speaker
		if t.Speaker < 0 {
			if t.EndSec >= endAttributedSpeakerSec {
				effective = 0
				if t.Text != "" {
					tailTexts = append(tailTexts, t.Text)
				}
			} else if havePrior {
				effective = priorSpeaker
			} else {
				effective = 0
			}
		}
		priorSpeaker = effective
		havePrior = true

		if len(groups) > 0 && groups[len(groups)-1].speaker == effective {
			last := &groups[len(groups)-1]
			last.tokens = append(last.tokens, t)
			if t.Text != "" {
				last.texts = append(last.texts, t.Text)
			}
			continue
		}
		groups = append(groups, group{speaker: effective, texts: []string{t.Text}, tokens: []ASRToken{t}})
	}

	lines = make([]Line, 0, len(groups))
	lastEnd := 0.0
	for _, g := range groups {
		beg := g.tokens[0].StartSec
		end := g.tokens[len(g.tokens)-1].EndSec
		lines = append(lines, Line{
			Speaker: g.speaker,
			Text:    strings.Join(g.texts, sep),
			Beg:     formatTime(int(beg)),
			End:     formatTime(int(end)),
			Diff:    round2(end - lastEnd),
		})
		lastEnd = end
	}

	return lines, strings.Join(tailTexts, sep)
}
