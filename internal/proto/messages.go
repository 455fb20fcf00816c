package proto

import (
	"encoding/json"
	"fmt"

	"github.com/anbuneel/zenote-sub001/internal/remote"
	"google.golang.org/protobuf/encoding/protojson"
	"google.golang.org/protobuf/types/known/structpb"
)

type InsertRequest struct {
	Table      string       `json:"table"`
	Rows       []remote.Row `json:"rows"`
	MutationID string       `json:"mutation_id,omitempty"`
}

type UpdateRequest struct {
	Table      string     `json:"table"`
	ID         string     `json:"id"`
	Patch      remote.Row `json:"patch"`
	MutationID string     `json:"mutation_id,omitempty"`
}

type DeleteRequest struct {
	Table      string `json:"table"`
	ID         string `json:"id"`
	MutationID string `json:"mutation_id,omitempty"`
}

type SelectRequest struct {
	Table  string         `json:"table"`
	Filter remote.Filter  `json:"filter,omitempty"`
	Order  []remote.Order `json:"order,omitempty"`
}

type RowsResponse struct {
	Rows []remote.Row `json:"rows"`
}

type RowResponse struct {
	Row remote.Row `json:"row"`
}

type ResolveShareRequest struct {
	Token string `json:"token"`
}

type PresignExportResponse struct {
	Key         string `json:"key"`
	UploadURL   string `json:"upload_url"`
	DownloadURL string `json:"download_url"`
}

type PingResponse struct {
	Status     string `json:"status"`
	ServerTime string `json:"server_time"`
}

type Empty struct{}

// Encode converts a message into a Struct through its JSON form.
func Encode(v any) (*structpb.Struct, error) {
	b, err := json.Marshal(v)
	if err != nil {
		return nil, fmt.Errorf("encode %T: %w", v, err)
	}
	s := &structpb.Struct{}
	if err := protojson.Unmarshal(b, s); err != nil {
		return nil, fmt.Errorf("encode %T: %w", v, err)
	}
	return s, nil
}

// Decode fills v from s. A nil s leaves v untouched.
func Decode(s *structpb.Struct, v any) error {
	if s == nil {
		return nil
	}
	b, err := protojson.Marshal(s)
	if err != nil {
		return fmt.Errorf("decode %T: %w", v, err)
	}
	if err := json.Unmarshal(b, v); err != nil {
		return fmt.Errorf("decode %T: %w", v, err)
	}
	return nil
}
