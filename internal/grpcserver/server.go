package grpcserver

import (
	"context"
	"errors"
	"strings"

	"go.uber.org/zap"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"

	"slicemeow/internal/catalog"
	"slicemeow/pkg/models"
)

type Server struct {
	Store catalog.Store
	Log   *zap.Logger
}

func NewServer(store catalog.Store, log *zap.Logger) *Server {
	return &Server{Store: store, Log: log}
}

func (s *Server) GetRecord(ctx context.Context, req *GetRecordRequest) (*GetRecordResponse, error) {
	if req == nil || strings.TrimSpace(req.ID) == "" {
		return nil, status.Error(codes.InvalidArgument, "id required")
	}
	coll, err := collection(req.Collection)
	if err != nil {
		return nil, err
	}

	rec, err := s.Store.Get(ctx, coll, strings.TrimSpace(req.ID))
	if err != nil {
		if errors.Is(err, catalog.ErrNotFound) {
			return nil, status.Error(codes.NotFound, "not found")
		}
		s.Log.Error("grpc get failed", zap.Error(err))
		return nil, status.Error(codes.Internal, "get failed")
	}
	return &GetRecordResponse{Record: rec}, nil
}

func (s *Server) ListRecords(ctx context.Context, req *ListRecordsRequest) (*ListRecordsResponse, error) {
	if req == nil {
		return nil, status.Error(codes.InvalidArgument, "request required")
	}
	coll, err := collection(req.Collection)
	if err != nil {
		return nil, err
	}

	page, err := s.Store.List(ctx, coll, catalog.ListQuery{
		Limit:  req.Limit,
		Offset: req.Offset,
		Sort:   catalog.SortOrder(strings.ToLower(strings.TrimSpace(req.Sort))),
	})
	if err != nil {
		s.Log.Error("grpc list failed", zap.Error(err))
		return nil, status.Error(codes.Internal, "list failed")
	}

	return &ListRecordsResponse{
		Items:  page.Items,
		Total:  page.Total,
		Limit:  page.Limit,
		Offset: page.Offset,
	}, nil
}

func collection(name string) (models.Collection, error) {
	c := models.Collection(strings.ToLower(strings.TrimSpace(name)))
	if !c.Valid() {
		return "", status.Error(codes.InvalidArgument, "collection must be movies or webseries")
	}
	return c, nil
}
