package chain

import (
	"encoding/json"
	"fmt"
	"strconv"
	"strings"

	"github.com/adrianncovaci/uni-chain/internal/types"
)

// wireCourse is the node's JSON encoding of a course record. Optional fields
// arrive in whatever shape the node's serializer produced: price may be a
// number, a human-formatted string ("1,000"), or null for an unlisted course.
type wireCourse struct {
	Dna     string          `json:"dna"`
	Owner   string          `json:"owner"`
	Price   json.RawMessage `json:"price"`
	Year    string          `json:"courseYear"`
	Credits uint8           `json:"credits"`
}

// DecodeCourse parses a raw record into a CourseRecord, normalizing the
// optional wire fields into plain values.
func DecodeCourse(raw json.RawMessage) (types.CourseRecord, error) {
	var w wireCourse
	if err := json.Unmarshal(raw, &w); err != nil {
		return types.CourseRecord{}, fmt.Errorf("decode course record: %w", err)
	}
	if w.Dna == "" {
		return types.CourseRecord{}, fmt.Errorf("course record missing dna")
	}

	price, err := decodePrice(w.Price)
	if err != nil {
		return types.CourseRecord{}, fmt.Errorf("course %s: %w", w.Dna, err)
	}

	return types.CourseRecord{
		Dna:     strings.ToLower(w.Dna),
		Owner:   w.Owner,
		Price:   price,
		Year:    normalizeYear(w.Year),
		Credits: w.Credits,
	}, nil
}

// DecodeDna extracts just the identifier field from a raw record, for
// enumeration passes that do not need the full parse.
func DecodeDna(raw json.RawMessage) (string, error) {
	var w struct {
		Dna string `json:"dna"`
	}
	if err := json.Unmarshal(raw, &w); err != nil {
		return "", fmt.Errorf("decode course dna: %w", err)
	}
	if w.Dna == "" {
		return "", fmt.Errorf("course record missing dna")
	}
	return strings.ToLower(w.Dna), nil
}

func decodePrice(raw json.RawMessage) (uint64, error) {
	if len(raw) == 0 || string(raw) == "null" {
		return 0, nil
	}

	var n uint64
	if err := json.Unmarshal(raw, &n); err == nil {
		return n, nil
	}

	var s string
	if err := json.Unmarshal(raw, &s); err != nil {
		return 0, fmt.Errorf("unrecognized price encoding %s", string(raw))
	}
	s = strings.ReplaceAll(strings.TrimSpace(s), ",", "")
	if s == "" {
		return 0, nil
	}
	n, err := strconv.ParseUint(s, 10, 64)
	if err != nil {
		return 0, fmt.Errorf("parse price %q: %w", s, err)
	}
	return n, nil
}

func normalizeYear(s string) types.CourseYear {
	switch types.CourseYear(strings.TrimSpace(s)) {
	case types.YearSecond:
		return types.YearSecond
	case types.YearThird:
		return types.YearThird
	case types.YearFourth:
		return types.YearFourth
	default:
		return types.YearFirst
	}
}
