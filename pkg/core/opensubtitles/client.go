// Package opensubtitles speaks the OpenSubtitles XML-RPC protocol:
// LogIn, SearchSubtitles, DownloadSubtitles, LogOut. It decodes responses
// into the flat record form the selector consumes and hides every wire
// quirk of the service from the rest of the program.
package opensubtitles

import (
	"bytes"
	"compress/gzip"
	"encoding/base64"
	"fmt"
	"io"
	"net/http"
	"strconv"

	xmlrpc "github.com/kolo/xmlrpc"
	log "github.com/sirupsen/logrus"

	sgerrors "github.com/subgrab/subgrab/pkg/core/errors"
	"github.com/subgrab/subgrab/pkg/core/selector"
)

// HashQuery is one entry of a batched search: a fingerprint and the byte
// size of the file it was computed from.
type HashQuery struct {
	Hash string
	Size int64
}

// Client holds one XML-RPC session with the service.
type Client struct {
	rpc      *xmlrpc.Client
	logger   *log.Logger
	token    string
	loggedIn bool
}

// NewClient creates a client against the given endpoint. Pass a test
// server URL to exercise the wire handling offline.
func NewClient(endpoint string, logger *log.Logger) (*Client, error) {
	if logger == nil {
		logger = log.New()
	}
	rpc, err := xmlrpc.NewClient(endpoint, http.DefaultTransport)
	if err != nil {
		return nil, fmt.Errorf("creating XML-RPC client: %w", err)
	}
	return &Client{rpc: rpc, logger: logger}, nil
}

type loginResponse struct {
	Token  string `xmlrpc:"token"`
	Status string `xmlrpc:"status"`
}

type statusResponse struct {
	Status string `xmlrpc:"status"`
}

// checkStatus maps every status other than "200 OK" to ErrBadStatus.
func checkStatus(status string) error {
	if status != "200 OK" {
		return fmt.Errorf("%w: %q", sgerrors.ErrBadStatus, status)
	}
	return nil
}

// LogIn authenticates and stores the session token. Empty username and
// password perform the anonymous login the service allows for downloads.
func (c *Client) LogIn(username, password, language, userAgent string) error {
	var resp loginResponse
	err := c.rpc.Call("LogIn", []interface{}{username, password, language, userAgent}, &resp)
	if err != nil {
		return fmt.Errorf("xmlrpc LogIn call failed: %w", err)
	}
	if err := checkStatus(resp.Status); err != nil {
		return fmt.Errorf("LogIn: %w", err)
	}
	c.token = resp.Token
	c.loggedIn = true
	c.logger.Debug("Logged in to OpenSubtitles")
	return nil
}

// LogOut invalidates the session token.
func (c *Client) LogOut() error {
	if !c.loggedIn {
		return sgerrors.ErrNotLoggedIn
	}
	var resp statusResponse
	err := c.rpc.Call("LogOut", []interface{}{c.token}, &resp)
	if err != nil {
		return fmt.Errorf("xmlrpc LogOut call failed: %w", err)
	}
	if err := checkStatus(resp.Status); err != nil {
		return fmt.Errorf("LogOut: %w", err)
	}
	c.token = ""
	c.loggedIn = false
	c.logger.Debug("Logged out from OpenSubtitles")
	return nil
}

// SearchSubtitles runs one batched hash search and returns the raw match
// records in server order. A single-entry batch is sent twice: the
// service returns nothing for one-element batches, and the resulting
// duplicate pair collapses again in the selector. "No results" is an
// empty slice, not an error.
func (c *Client) SearchSubtitles(language string, queries []HashQuery) ([]selector.Record, error) {
	if !c.loggedIn {
		return nil, sgerrors.ErrNotLoggedIn
	}

	search := make([]interface{}, 0, len(queries)+1)
	for _, q := range queries {
		search = append(search, map[string]interface{}{
			"sublanguageid": language,
			"moviehash":     q.Hash,
			"moviebytesize": strconv.FormatInt(q.Size, 10),
		})
	}
	if len(search) == 1 {
		search = append(search, search[0])
	}

	var raw interface{}
	err := c.rpc.Call("SearchSubtitles", []interface{}{c.token, search}, &raw)
	if err != nil {
		return nil, fmt.Errorf("xmlrpc SearchSubtitles call failed: %w", err)
	}

	body, ok := raw.(map[string]interface{})
	if !ok {
		return nil, fmt.Errorf("unexpected SearchSubtitles response type: %T", raw)
	}
	if err := checkStatus(stringField(body, "status")); err != nil {
		return nil, fmt.Errorf("SearchSubtitles: %w", err)
	}

	// data is boolean false when nothing matched.
	switch data := body["data"].(type) {
	case bool:
		return nil, nil
	case []interface{}:
		records := make([]selector.Record, 0, len(data))
		for _, item := range data {
			row, ok := item.(map[string]interface{})
			if !ok {
				continue
			}
			records = append(records, selector.Record{
				Hash:       stringField(row, "MovieHash"),
				SubtitleID: stringField(row, "IDSubtitleFile"),
				Bad:        stringField(row, "SubBad"),
			})
		}
		return records, nil
	default:
		return nil, fmt.Errorf("unexpected SearchSubtitles data type: %T", body["data"])
	}
}

// DownloadSubtitle fetches one subtitle by its file id and returns the
// decompressed bytes. The wire payload is base64-wrapped gzip.
func (c *Client) DownloadSubtitle(subtitleID string) ([]byte, error) {
	if !c.loggedIn {
		return nil, sgerrors.ErrNotLoggedIn
	}

	var raw interface{}
	err := c.rpc.Call("DownloadSubtitles", []interface{}{c.token, []string{subtitleID}}, &raw)
	if err != nil {
		return nil, fmt.Errorf("xmlrpc DownloadSubtitles call failed: %w", err)
	}

	body, ok := raw.(map[string]interface{})
	if !ok {
		return nil, fmt.Errorf("unexpected DownloadSubtitles response type: %T", raw)
	}
	if err := checkStatus(stringField(body, "status")); err != nil {
		return nil, fmt.Errorf("DownloadSubtitles: %w", err)
	}

	data, ok := body["data"].([]interface{})
	if !ok || len(data) == 0 {
		return nil, fmt.Errorf("DownloadSubtitles returned no payload for id %s", subtitleID)
	}
	row, ok := data[0].(map[string]interface{})
	if !ok {
		return nil, fmt.Errorf("unexpected DownloadSubtitles payload type: %T", data[0])
	}

	decoded, err := base64.StdEncoding.DecodeString(stringField(row, "data"))
	if err != nil {
		return nil, fmt.Errorf("decoding subtitle %s: %w", subtitleID, err)
	}
	gz, err := gzip.NewReader(bytes.NewReader(decoded))
	if err != nil {
		return nil, fmt.Errorf("decompressing subtitle %s: %w", subtitleID, err)
	}
	defer gz.Close()

	content, err := io.ReadAll(gz)
	if err != nil {
		return nil, fmt.Errorf("decompressing subtitle %s: %w", subtitleID, err)
	}
	return content, nil
}

// Close releases the underlying XML-RPC connection.
func (c *Client) Close() error {
	return c.rpc.Close()
}

func stringField(m map[string]interface{}, key string) string {
	s, _ := m[key].(string)
	return s
}
