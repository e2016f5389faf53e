package sources

import (
	"context"
	"fmt"
	"net/http"
	"strings"

	"github.com/kolo/xmlrpc"
)

// Compile-time interface check.
var _ ResourceFetcher = (*WordPressConnection)(nil)

// postFields maps the names orchestra uses for a post to the names the
// WordPress XML-RPC API uses.
var postFields = map[string]string{
	"id":            "post_id",
	"title":         "post_title",
	"date":          "post_date_gmt",
	"modified":      "post_modified_gmt",
	"status":        "post_status",
	"type":          "post_type",
	"format":        "post_format",
	"name":          "post_name",
	"author":        "post_author",
	"password":      "post_password",
	"excerpt":       "post_excerpt",
	"content":       "post_content",
	"parent":        "post_parent",
	"mimeType":      "post_mime_type",
	"link":          "link",
	"guid":          "guid",
	"menuOrder":     "menu_order",
	"commentStatus": "comment_status",
	"pingStatus":    "ping_status",
	"sticky":        "sticky",
	"thumbnail":     "post_thumbnail",
	"terms":         "terms",
	"termNames":     "terms_names",
	"customFields":  "custom_fields",
	"enclosure":     "enclosure",
}

var remotePostFields = func() map[string]string {
	m := make(map[string]string, len(postFields))
	for local, remote := range postFields {
		m[remote] = local
	}
	return m
}()

// WordPressConnection fetches posts through wp.getPosts.
type WordPressConnection struct {
	endpoint string
	username string
	password string
	blogID   int
	rpc      *xmlrpc.Client
}

// Endpoint returns the XML-RPC endpoint for a client: its api_url, or its
// url with /xmlrpc.php appended.
func Endpoint(c *Client) string {
	if c.APIURL() != "" {
		return c.APIURL()
	}
	return strings.TrimRight(c.URL(), "/") + "/xmlrpc.php"
}

// NewWordPressConnection creates a connection using c's credentials. A nil
// transport uses http.DefaultTransport.
func NewWordPressConnection(c *Client, transport http.RoundTripper) (*WordPressConnection, error) {
	endpoint := Endpoint(c)
	if transport == nil {
		transport = http.DefaultTransport
	}
	rpcClient, err := xmlrpc.NewClient(endpoint, transport)
	if err != nil {
		return nil, fmt.Errorf("wordpress: %s: %w", c.Name(), err)
	}
	return &WordPressConnection{
		endpoint: endpoint,
		username: c.Username(),
		password: c.Password(),
		rpc:      rpcClient,
	}, nil
}

func (w *WordPressConnection) Endpoint() string { return w.endpoint }

// Close releases the underlying RPC client.
func (w *WordPressConnection) Close() error { return w.rpc.Close() }

// FetchResources calls wp.getPosts and normalises each post. An orderby
// filter and the requested fields are translated to WordPress names, and
// post_id is always requested so every resource carries an id.
func (w *WordPressConnection) FetchResources(ctx context.Context, filter Filter, fields Fields) ([]Resource, error) {
	params := []any{w.blogID, w.username, w.password, remoteFilter(filter)}
	if len(fields) > 0 {
		params = append(params, remoteFields(fields))
	}

	// The XML-RPC client performs the HTTP round trip inside the call and
	// takes no context, so the call runs in its own goroutine.
	type outcome struct {
		reply any
		err   error
	}
	done := make(chan outcome, 1)
	go func() {
		var reply any
		err := w.rpc.Call("wp.getPosts", params, &reply)
		done <- outcome{reply, err}
	}()

	var reply any
	select {
	case <-ctx.Done():
		return nil, fmt.Errorf("wordpress: wp.getPosts: %w", ctx.Err())
	case out := <-done:
		if out.err != nil {
			return nil, fmt.Errorf("wordpress: wp.getPosts: %w", out.err)
		}
		reply = out.reply
	}

	posts, ok := reply.([]any)
	if !ok && reply != nil {
		return nil, fmt.Errorf("wordpress: wp.getPosts: unexpected reply %T", reply)
	}
	resources := make([]Resource, 0, len(posts))
	for i, p := range posts {
		post, ok := p.(map[string]any)
		if !ok {
			return nil, fmt.Errorf("wordpress: wp.getPosts: post %d is %T", i, p)
		}
		resources = append(resources, normalizePost(post))
	}
	return resources, nil
}

func remoteFilter(filter Filter) map[string]any {
	out := make(map[string]any, len(filter))
	for k, v := range filter {
		out[k] = v
	}
	if s, ok := out["orderby"].(string); ok {
		if remote, ok := postFields[s]; ok {
			out["orderby"] = remote
		}
	}
	return out
}

func remoteFields(fields Fields) []any {
	out := make([]any, 0, len(fields)+1)
	hasID := false
	for _, f := range fields {
		remote, ok := postFields[f]
		if !ok {
			remote = f
		}
		if remote == "post_id" {
			hasID = true
		}
		out = append(out, remote)
	}
	if !hasID {
		out = append(out, "post_id")
	}
	return out
}

// normalizePost renames known WordPress keys; unknown keys are dropped.
func normalizePost(post map[string]any) Resource {
	r := make(Resource, len(post))
	for k, v := range post {
		if local, ok := remotePostFields[k]; ok {
			r[local] = v
		}
	}
	return r
}
