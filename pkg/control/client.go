package control

import (
	"bytes"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"

	"github.com/mandelsoft/webrequest/pkg/api"
	"github.com/mandelsoft/webrequest/pkg/utils"
	"github.com/mandelsoft/webrequest/pkg/webrequest"
)

// Client accesses the control API of a server.
type Client struct {
	base   string
	client *http.Client
}

func NewClient(address string, client ...*http.Client) *Client {
	a := address
	if !strings.HasPrefix(a, "http://") && !strings.HasPrefix(a, "https://") {
		a = "http://" + a
	}
	return &Client{
		base:   strings.TrimSuffix(a, "/"),
		client: utils.OptionalDefaulted(http.DefaultClient, client...),
	}
}

func (c *Client) URL(path ...string) string {
	u := c.base
	for _, p := range path {
		u += "/" + url.PathEscape(p)
	}
	return u
}

// ResponseData provides the response body of a successful request.
// Otherwise, the error reported by the server is returned.
func ResponseData(r *http.Response) ([]byte, error) {
	defer r.Body.Close()
	data, err := io.ReadAll(r.Body)
	if err != nil {
		return nil, err
	}
	if r.StatusCode >= 200 && r.StatusCode < 300 {
		return data, nil
	}

	if len(data) == 0 {
		return nil, fmt.Errorf("request failed with status %s", r.Status)
	}

	var msg api.Error
	err = json.Unmarshal(data, &msg)
	if err != nil || msg.Error == "" {
		return nil, fmt.Errorf("request failed with status %s", r.Status)
	}
	return nil, fmt.Errorf("%s", msg.Error)
}

func (c *Client) do(method string, body any, result any, path ...string) (int, error) {
	var reader io.Reader
	if body != nil {
		data, err := json.Marshal(body)
		if err != nil {
			return 0, err
		}
		reader = bytes.NewReader(data)
	}
	req, err := http.NewRequest(method, c.URL(path...), reader)
	if err != nil {
		return 0, err
	}
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	r, err := c.client.Do(req)
	if err != nil {
		return 0, err
	}
	data, err := ResponseData(r)
	if err != nil {
		return r.StatusCode, err
	}
	if result != nil && len(data) > 0 {
		err = json.Unmarshal(data, result)
	}
	return r.StatusCode, err
}

func (c *Client) Buckets() ([]api.Bucket, error) {
	var list api.BucketList
	_, err := c.do(http.MethodGet, nil, &list, "listeners")
	return list.Items, err
}

func (c *Client) Bucket(event webrequest.EventType) (*api.Bucket, error) {
	var b api.Bucket
	_, err := c.do(http.MethodGet, nil, &b, "listeners", string(event))
	if err != nil {
		return nil, err
	}
	return &b, nil
}

// Apply installs a rule. It returns the listener created for
// the rule and whether the rule is new.
func (c *Client) Apply(rule *api.Rule) (*api.Listener, bool, error) {
	var l api.Listener
	status, err := c.do(http.MethodPost, rule, &l, "listeners")
	if err != nil {
		return nil, false, err
	}
	return &l, status == http.StatusCreated, nil
}

func (c *Client) Clear(event webrequest.EventType) error {
	_, err := c.do(http.MethodDelete, nil, nil, "listeners", string(event))
	return err
}

func (c *Client) Remove(event webrequest.EventType, id string) error {
	_, err := c.do(http.MethodDelete, nil, nil, "listeners", string(event), id)
	return err
}

func (c *Client) Resolvers() (map[webrequest.EventType]string, error) {
	var m map[webrequest.EventType]string
	_, err := c.do(http.MethodGet, nil, &m, "resolvers")
	return m, err
}

func (c *Client) SetResolver(event webrequest.EventType, policy string) (*api.ResolverResponse, error) {
	var r api.ResolverResponse
	_, err := c.do(http.MethodPut, &api.ResolverRequest{Policy: policy}, &r, "resolvers", string(event))
	if err != nil {
		return nil, err
	}
	return &r, nil
}

func (c *Client) Rules() ([]api.Rule, error) {
	var list []api.Rule
	_, err := c.do(http.MethodGet, nil, &list, "rules")
	return list, err
}

func (c *Client) DeleteRule(name string) error {
	_, err := c.do(http.MethodDelete, nil, nil, "rules", name)
	return err
}
