package gameserver

import (
	"encoding/json"
	"fmt"
	"strconv"
	"time"

	"google.golang.org/protobuf/encoding/protojson"
	"google.golang.org/protobuf/types/known/structpb"

	"github.com/cory-johannsen/arena/internal/game/genome"
	"github.com/cory-johannsen/arena/internal/game/match"
)

// MatchInfo is the wire form of a running match.
type MatchInfo struct {
	ID       string         `json:"id"`
	Phase    match.Phase    `json:"phase"`
	Tick     int64          `json:"tick"`
	Fighters [2]FighterInfo `json:"fighters"`
	Watchers int            `json:"watchers"`
}

// FighterInfo names a fighter in a MatchInfo.
type FighterInfo struct {
	ID       string          `json:"id"`
	Name     string          `json:"name"`
	Mobility genome.Mobility `json:"mobility"`
}

// ResultInfo is the wire form of a finished match. The seed travels as a
// decimal string since Struct numbers are doubles.
type ResultInfo struct {
	MatchID  string       `json:"matchId"`
	Seed     string       `json:"seed"`
	Fighters [2]string    `json:"fighters"`
	Winner   int          `json:"winner"`
	WinnerID string       `json:"winnerId,omitempty"`
	Reason   match.Reason `json:"reason"`
	Detail   string       `json:"detail,omitempty"`
	Ticks    int64        `json:"ticks"`
	FinalHP  [2]float64   `json:"finalHp"`
	EndedAt  time.Time    `json:"endedAt"`
}

// Listing is the ListMatches response.
type Listing struct {
	Running []MatchInfo  `json:"running"`
	Recent  []ResultInfo `json:"recent"`
}

func newResultInfo(r match.Result) ResultInfo {
	return ResultInfo{
		MatchID:  r.MatchID.String(),
		Seed:     strconv.FormatUint(r.Seed, 10),
		Fighters: [2]string{r.Genomes[0].ID, r.Genomes[1].ID},
		Winner:   r.Winner,
		WinnerID: r.WinnerID(),
		Reason:   r.Reason,
		Detail:   r.Detail,
		Ticks:    r.Ticks,
		FinalHP:  r.FinalHP,
		EndedAt:  r.EndedAt,
	}
}

func newMatchInfo(s match.Summary) MatchInfo {
	info := MatchInfo{ID: s.ID.String(), Phase: s.Phase, Tick: s.Tick, Watchers: s.Watchers}
	for i, g := range s.Genomes {
		info.Fighters[i] = FighterInfo{ID: g.ID, Name: g.Name, Mobility: g.Traits.Mobility}
	}
	return info
}

// toStruct converts any JSON-tagged value into a protobuf Struct.
func toStruct(v any) (*structpb.Struct, error) {
	b, err := json.Marshal(v)
	if err != nil {
		return nil, fmt.Errorf("encoding %T: %w", v, err)
	}
	s := &structpb.Struct{}
	if err := protojson.Unmarshal(b, s); err != nil {
		return nil, fmt.Errorf("converting %T to struct: %w", v, err)
	}
	return s, nil
}

// fromStruct is the inverse of toStruct.
func fromStruct(s *structpb.Struct, v any) error {
	b, err := protojson.Marshal(s)
	if err != nil {
		return fmt.Errorf("converting struct: %w", err)
	}
	if err := json.Unmarshal(b, v); err != nil {
		return fmt.Errorf("decoding %T: %w", v, err)
	}
	return nil
}

// stringField returns a string field of s, or "".
func stringField(s *structpb.Struct, key string) string {
	if s == nil {
		return ""
	}
	return s.GetFields()[key].GetStringValue()
}
