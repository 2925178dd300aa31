package embedding

// Tokenizer produces token IDs for CLIP-style text models (input_ids, attention_mask).
type Tokenizer interface {
	Tokenize(text string, maxTokens int) (inputIDs, attentionMask []int64)
}

// CLIP special token IDs (start/end of text).
const (
	tokenStartOfText = 49406
	tokenEndOfText   = 49407
	tokenVocabSize   = 49152
)

// SimpleTokenizer is a word-split tokenizer with hash-based token IDs. It is a
// fallback for models whose BPE vocabulary is baked into the exported ONNX
// graph, and the deterministic tokenizer used in tests.
type SimpleTokenizer struct{}

// Tokenize splits text into words and produces padded token IDs up to maxTokens.
func (t *SimpleTokenizer) Tokenize(text string, maxTokens int) (inputIDs, attentionMask []int64) {
	words := SplitWords(text)
	if maxTokens <= 0 {
		maxTokens = 77
	}
	inputIDs = make([]int64, maxTokens)
	attentionMask = make([]int64, maxTokens)

	inputIDs[0] = tokenStartOfText
	attentionMask[0] = 1

	pos := 1
	for _, word := range words {
		if pos >= maxTokens-1 {
			break
		}
		inputIDs[pos] = int64(HashString(word) % (tokenVocabSize - 1000))
		attentionMask[pos] = 1
		pos++
	}
	if pos < maxTokens {
		inputIDs[pos] = tokenEndOfText
		attentionMask[pos] = 1
	}
	return inputIDs, attentionMask
}

// SplitWords splits text on whitespace and returns non-empty words.
func SplitWords(text string) []string {
	var words []string
	word := ""
	for _, r := range text {
		if r == ' ' || r == '\n' || r == '\t' {
			if word != "" {
				words = append(words, word)
				word = ""
			}
		} else {
			word += string(r)
		}
	}
	if word != "" {
		words = append(words, word)
	}
	return words
}

// HashString returns a deterministic hash for use as a simple token ID.
func HashString(s string) int {
	h := 0
	for _, c := range s {
		h = 31*h + int(c)
	}
	if h < 0 {
		h = -h
	}
	return h
}
