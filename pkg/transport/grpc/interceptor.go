package grpctransport

import (
	"context"

	"github.com/porthorian/accountgate/pkg/connector"
	oerrors "github.com/porthorian/accountgate/pkg/errors"
	"google.golang.org/grpc"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/metadata"
	"google.golang.org/grpc/status"
)

const (
	UsernameKey   = "x-account-username"
	PasswordKey   = "x-account-password"
	SwitchUserKey = "x-account-switch-user"
)

// ConnectionResolver is satisfied by *cache.ConnectionCache.
type ConnectionResolver interface {
	Resolve(ctx context.Context, identity connector.Identity, secret string, actingAs connector.Identity) (connector.Connection, error)
}

type connectionContextKey struct{}

func ConnectionFromContext(ctx context.Context) (connector.Connection, bool) {
	conn, ok := ctx.Value(connectionContextKey{}).(connector.Connection)
	return conn, ok && conn != nil
}

func UnaryInterceptor(resolver ConnectionResolver) grpc.UnaryServerInterceptor {
	return func(ctx context.Context, req any, info *grpc.UnaryServerInfo, handler grpc.UnaryHandler) (any, error) {
		ctx, err := resolve(ctx, resolver)
		if err != nil {
			return nil, err
		}
		return handler(ctx, req)
	}
}

func StreamInterceptor(resolver ConnectionResolver) grpc.StreamServerInterceptor {
	return func(srv any, stream grpc.ServerStream, info *grpc.StreamServerInfo, handler grpc.StreamHandler) error {
		ctx, err := resolve(stream.Context(), resolver)
		if err != nil {
			return err
		}
		return handler(srv, &serverStream{ServerStream: stream, ctx: ctx})
	}
}

type serverStream struct {
	grpc.ServerStream
	ctx context.Context
}

func (s *serverStream) Context() context.Context {
	return s.ctx
}

func resolve(ctx context.Context, resolver ConnectionResolver) (context.Context, error) {
	md, _ := metadata.FromIncomingContext(ctx)
	username := first(md, UsernameKey)
	password := first(md, PasswordKey)
	if username == "" || password == "" {
		return nil, status.Error(codes.InvalidArgument, "missing account credentials")
	}

	conn, err := resolver.Resolve(ctx, connector.Identity(username), password, connector.Identity(first(md, SwitchUserKey)))
	if err != nil {
		return nil, status.Error(statusCode(err), err.Error())
	}
	return context.WithValue(ctx, connectionContextKey{}, conn), nil
}

func statusCode(err error) codes.Code {
	switch oerrors.CodeOf(err) {
	case oerrors.CodeInvalidCredentials:
		return codes.InvalidArgument
	case oerrors.CodeAccountNotFound, oerrors.CodeBadSecret, oerrors.CodeAccountDisabled:
		return codes.Unauthenticated
	default:
		return codes.Unavailable
	}
}

func first(md metadata.MD, key string) string {
	values := md.Get(key)
	if len(values) == 0 {
		return ""
	}
	return values[0]
}
