package convert

import (
	"encoding/json"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"sort"
)

// Vocab is a GGUF tokenizer vocabulary: parallel token/score/type
// arrays, the layout gguf.md documents for tokenizer.ggml.tokens /
// .scores / .token_type.
type Vocab struct {
	Tokens []string
	Scores []float32
	Types  []int32
}

// Token type tags, matching llama.cpp's gguf tokenizer convention.
const (
	TokenTypeNormal = iota + 1
	TokenTypeUnknown
	TokenTypeControl
	TokenTypeUserDefined
	TokenTypeUnused
	TokenTypeByte
)

// hfVocab is the subset of a HuggingFace tokenizer.json this toolkit
// reads: a model.vocab string->id map, read in id order.
type hfVocab struct {
	Model struct {
		Vocab map[string]int `json:"vocab"`
	} `json:"model"`
}

// LoadTokens reads a vocabulary from dirpath/tokenizer.json plus any
// dirpath/added_tokens.json overflow, padding to params.VocabSize with
// placeholder tokens if the source falls short.
//
// The teacher reads tokenizer.model, a raw sentencepiece protobuf, via
// a generated sentencepiece.pb.go; this toolkit instead reads the
// tokenizer.json HuggingFace ships alongside it, since no vocabulary
// source in this toolkit's dependency set decodes sentencepiece's wire
// format without a generated protobuf stub (see DESIGN.md).
func LoadTokens(dirpath string, params *Params) (*Vocab, error) {
	slog.Info("reading vocab", slog.String("path", filepath.Join(dirpath, "tokenizer.json")))

	raw, err := os.ReadFile(filepath.Join(dirpath, "tokenizer.json"))
	if err != nil {
		return nil, err
	}
	var hv hfVocab
	if err := json.Unmarshal(raw, &hv); err != nil {
		return nil, err
	}

	ids := make([]string, 0, len(hv.Model.Vocab))
	for tok := range hv.Model.Vocab {
		ids = append(ids, tok)
	}
	sort.Slice(ids, func(i, j int) bool { return hv.Model.Vocab[ids[i]] < hv.Model.Vocab[ids[j]] })

	v := &Vocab{
		Tokens: make([]string, len(ids)),
		Scores: make([]float32, len(ids)),
		Types:  make([]int32, len(ids)),
	}
	for i, tok := range ids {
		v.Tokens[i] = tok
		v.Scores[i] = 0
		v.Types[i] = TokenTypeNormal
	}
	slog.Info("vocab size", slog.Int("tokens", len(v.Tokens)))

	if err := addExtraTokens(dirpath, v); err != nil {
		return nil, err
	}

	if params.VocabSize > len(v.Tokens) {
		missing := params.VocabSize - len(v.Tokens)
		slog.Warn("vocab is missing tokens", slog.Int("missing", missing))
		for i := 0; i < missing; i++ {
			v.Tokens = append(v.Tokens, fmt.Sprintf("<dummy%05d>", i+1))
			v.Scores = append(v.Scores, -1)
			v.Types = append(v.Types, TokenTypeUserDefined)
		}
	}

	return v, nil
}

func addExtraTokens(dirpath string, v *Vocab) error {
	raw, err := os.ReadFile(filepath.Join(dirpath, "added_tokens.json"))
	if os.IsNotExist(err) {
		return nil
	} else if err != nil {
		return err
	}

	var extra map[string]int
	if err := json.Unmarshal(raw, &extra); err != nil {
		return err
	}

	type token struct {
		key string
		pos int
	}
	ordered := make([]token, 0, len(extra))
	for k, id := range extra {
		ordered = append(ordered, token{k, id})
	}
	sort.Slice(ordered, func(i, j int) bool { return ordered[i].pos < ordered[j].pos })

	base := len(v.Tokens)
	for i, t := range ordered {
		if t.pos != base+i {
			return fmt.Errorf("convert: added token %q has id %d, expected %d", t.key, t.pos, base+i)
		}
		v.Tokens = append(v.Tokens, t.key)
		v.Scores = append(v.Scores, -1000.0)
		v.Types = append(v.Types, TokenTypeUserDefined)
	}
	slog.Info("vocab size with extra tokens", slog.Int("tokens", len(v.Tokens)))
	return nil
}
