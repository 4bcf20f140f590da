// Package api holds one stateless request builder per server resource family. Every
// call goes through a Sender, normally the gateway.
package api

import (
	"context"
	"net/url"
	"strings"

	"github.com/thomaskoefod/conduit/internal/gateway"
)

// Sender issues a request and returns its successful response.
type Sender interface {
	Send(ctx context.Context, req gateway.Request) (*gateway.Response, error)
}

// Clients groups the resource clients sharing one Sender.
type Clients struct {
	Auth     *AuthClient
	Articles *ArticleClient
	Profiles *ProfileClient
	Comments *CommentClient
	Tags     *TagClient
}

func New(s Sender) Clients {
	return Clients{
		Auth:     &AuthClient{s: s},
		Articles: &ArticleClient{s: s},
		Profiles: &ProfileClient{s: s},
		Comments: &CommentClient{s: s},
		Tags:     &TagClient{s: s},
	}
}

// path joins escaped segments into an absolute API path.
func path(segments ...string) string {
	escaped := make([]string, len(segments))
	for i, s := range segments {
		escaped[i] = url.PathEscape(s)
	}
	return "/" + strings.Join(escaped, "/")
}
