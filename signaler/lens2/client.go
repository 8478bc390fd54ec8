package lens2

import (
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"
)

type client struct {
	endpoint *url.URL
	http     *http.Client
}

func newClient(endpoint string) (*client, error) {
	u, err := url.Parse(endpoint)
	if err != nil {
		return nil, err
	}
	return &client{
		endpoint: u,
		http: &http.Client{
			Timeout: 10 * time.Second,
		},
	}, nil
}

// newReq addresses topic through the t query parameter and carries the
// endpoint's userinfo as basic auth.
func (c *client) newReq(method string, topic string, body io.Reader) (req *http.Request, err error) {
	if req, err = http.NewRequest(method, c.endpoint.String(), body); err != nil {
		return
	}
	q := req.URL.Query()
	q.Set("t", topic)
	req.URL.RawQuery = q.Encode()
	req.URL.User = nil
	if u := c.endpoint.User; u != nil {
		pass, _ := u.Password()
		req.SetBasicAuth(u.Username(), pass)
	}
	return
}

func (c *client) doReq(req *http.Request) (res *http.Response, err error) {
	res, err = c.http.Do(req)
	if err != nil {
		return
	}
	if strings.HasPrefix(res.Status, "2") {
		return
	}
	defer res.Body.Close()
	var errText []byte
	if errText, err = io.ReadAll(res.Body); err != nil {
		return
	}
	err = fmt.Errorf("signaler err. status: %s. content: %s", res.Status, errText)
	return
}
