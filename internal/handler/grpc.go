package handler

import (
	"context"
	"errors"
	"net/http"
	"strconv"

	"github.com/MikhailRaia/media-proxy/internal/fetcher"
	"github.com/MikhailRaia/media-proxy/internal/limiter"
	"github.com/MikhailRaia/media-proxy/internal/middleware"
	"github.com/MikhailRaia/media-proxy/internal/model"
	"github.com/MikhailRaia/media-proxy/internal/proto"
	"github.com/rs/zerolog/log"
	"google.golang.org/grpc"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/metadata"
	"google.golang.org/grpc/status"
	"google.golang.org/protobuf/types/known/wrapperspb"
)

// Downloader is the part of the fetch service the gRPC transport needs.
type Downloader interface {
	Download(ctx context.Context, clientID, rawURL string) (*model.FetchResult, error)
}

type MediaProxyGRPCServer struct {
	proto.UnimplementedMediaProxyServer
	downloader Downloader
}

func NewMediaProxyGRPCServer(downloader Downloader) *MediaProxyGRPCServer {
	return &MediaProxyGRPCServer{
		downloader: downloader,
	}
}

func (s *MediaProxyGRPCServer) Fetch(ctx context.Context, req *wrapperspb.StringValue) (*wrapperspb.BytesValue, error) {
	clientID, _ := middleware.GetClientIDFromContext(ctx)

	result, err := s.downloader.Download(ctx, clientID, req.GetValue())
	if err != nil {
		return nil, grpcError(err)
	}

	md := metadata.Pairs(proto.HeaderContentType, result.ContentType)
	if result.HasContentLength() {
		md.Append(proto.HeaderLength, strconv.FormatInt(result.ContentLength, 10))
	}
	if err := grpc.SetHeader(ctx, md); err != nil {
		log.Debug().Err(err).Msg("Failed to set response metadata")
	}

	return wrapperspb.Bytes(result.Data), nil
}

func grpcError(err error) error {
	switch {
	case errors.Is(err, limiter.ErrRateLimited):
		return status.Error(codes.ResourceExhausted, "too many requests")
	case errors.Is(err, limiter.ErrBusy):
		return status.Error(codes.Unavailable, "too many concurrent downloads")
	case errors.Is(err, context.Canceled):
		return status.Error(codes.Canceled, err.Error())
	}

	fe := fetcher.AsError(err)
	switch fe.Kind {
	case fetcher.KindValidation:
		return status.Error(codes.InvalidArgument, fe.Message)
	case fetcher.KindSizeLimit:
		return status.Error(codes.ResourceExhausted, fe.Message)
	case fetcher.KindTimeout:
		return status.Error(codes.DeadlineExceeded, fe.Message)
	case fetcher.KindUpstream:
		return status.Error(codeFromHTTP(fe.Status), fe.Message)
	default:
		return status.Error(codes.Internal, fe.Message)
	}
}

// codeFromHTTP follows the gRPC HTTP-to-code mapping for upstream failures.
func codeFromHTTP(statusCode int) codes.Code {
	switch statusCode {
	case http.StatusBadRequest:
		return codes.InvalidArgument
	case http.StatusUnauthorized:
		return codes.Unauthenticated
	case http.StatusForbidden:
		return codes.PermissionDenied
	case http.StatusNotFound:
		return codes.NotFound
	case http.StatusConflict:
		return codes.Aborted
	case http.StatusTooManyRequests:
		return codes.ResourceExhausted
	case http.StatusNotImplemented:
		return codes.Unimplemented
	case http.StatusBadGateway, http.StatusServiceUnavailable:
		return codes.Unavailable
	case http.StatusGatewayTimeout:
		return codes.DeadlineExceeded
	}
	if statusCode >= 500 {
		return codes.Unavailable
	}
	return codes.Unknown
}
