package api

import (
	"encoding/json"
	"fmt"

	"google.golang.org/protobuf/encoding/protojson"
	"google.golang.org/protobuf/types/known/structpb"

	"github.com/miradorstack/realitycheck/internal/models"
)

// FromProtoAnalyzeRequest maps the gRPC request into a domain AnalyzeRequest.
func FromProtoAnalyzeRequest(req *structpb.Struct) (models.AnalyzeRequest, error) {
	var out models.AnalyzeRequest
	if err := fromStruct(req, &out); err != nil {
		return models.AnalyzeRequest{}, err
	}
	return out, nil
}

// FromProtoHistoryRequest maps the gRPC request into a domain HistoryRequest.
func FromProtoHistoryRequest(req *structpb.Struct) (models.HistoryRequest, error) {
	var out models.HistoryRequest
	if err := fromStruct(req, &out); err != nil {
		return models.HistoryRequest{}, err
	}
	return out, nil
}

// ToProtoAnalyzeRequest builds the wire request for a client.
func ToProtoAnalyzeRequest(req models.AnalyzeRequest) (*structpb.Struct, error) {
	return toStruct(req)
}

// ToProtoHistoryRequest builds the wire request for a client.
func ToProtoHistoryRequest(req models.HistoryRequest) (*structpb.Struct, error) {
	return toStruct(req)
}

// ToProtoAnalysisResponse converts a domain response into its wire document.
func ToProtoAnalysisResponse(resp models.AnalysisResponse) (*structpb.Struct, error) {
	return toStruct(resp)
}

// ToProtoHistory converts a replayed history into its wire document.
func ToProtoHistory(h models.History) (*structpb.Struct, error) {
	return toStruct(h)
}

// FromProtoAnalysisResponse decodes a wire response on the client side.
func FromProtoAnalysisResponse(s *structpb.Struct) (models.AnalysisResponse, error) {
	var out models.AnalysisResponse
	err := fromStruct(s, &out)
	return out, err
}

// FromProtoHistory decodes a wire history on the client side.
func FromProtoHistory(s *structpb.Struct) (models.History, error) {
	var out models.History
	err := fromStruct(s, &out)
	return out, err
}

func toStruct(v any) (*structpb.Struct, error) {
	raw, err := json.Marshal(v)
	if err != nil {
		return nil, fmt.Errorf("encode message: %w", err)
	}
	var fields map[string]any
	if err := json.Unmarshal(raw, &fields); err != nil {
		return nil, fmt.Errorf("encode message: %w", err)
	}
	s, err := structpb.NewStruct(fields)
	if err != nil {
		return nil, fmt.Errorf("encode message: %w", err)
	}
	return s, nil
}

func fromStruct(s *structpb.Struct, v any) error {
	if s == nil {
		return fmt.Errorf("request is nil")
	}
	raw, err := protojson.Marshal(s)
	if err != nil {
		return fmt.Errorf("decode message: %w", err)
	}
	if err := json.Unmarshal(raw, v); err != nil {
		return fmt.Errorf("decode message: %w", err)
	}
	return nil
}
