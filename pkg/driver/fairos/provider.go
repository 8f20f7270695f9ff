package fairos

import (
	"context"
	"fmt"
	"net/http"
	"net/url"

	"github.com/fairDataSociety/fairdrive-opfs/internal/httpx"
	"github.com/fairDataSociety/fairdrive-opfs/internal/logging"
	"github.com/fairDataSociety/fairdrive-opfs/pkg/driver"
	"github.com/fairDataSociety/fairdrive-opfs/pkg/provider"
)

// Provider adds FairOS sessions and pod lifecycle to the Driver. Moving to a
// different mount closes the previous pod and opens the new one.
type Provider struct {
	*provider.Base
	driver *Driver
}

var (
	_ provider.Provider      = (*Provider)(nil)
	_ provider.Authenticator = (*Provider)(nil)
)

// New returns a Provider called name.
func New(name string, cfg Config) (*Provider, error) {
	d, err := NewDriver(cfg)
	if err != nil {
		return nil, err
	}
	p := &Provider{Base: provider.NewBase(name, provider.KindFairOS, d), driver: d}
	p.SetMountHook(p.switchPod)
	return p, nil
}

// NewProvider builds a Provider from the union options record.
func NewProvider(ctx context.Context, name string, opts provider.Options) (provider.Provider, error) {
	return New(name, ConfigFromOptions(opts))
}

// Login starts a session. The session cookie is kept by the client.
func (p *Provider) Login(ctx context.Context, username, password string) error {
	req, err := httpx.JSON(http.MethodPost, "v2/user/login", map[string]string{
		"userName": username,
		"password": password,
	})
	if err != nil {
		return err
	}
	resp, err := p.driver.client.Do(ctx, req)
	if err != nil {
		return fmt.Errorf("login: %w", err)
	}
	if err := resp.Err(req); err != nil {
		return fmt.Errorf("login: %w", err)
	}
	logging.Info("logged in", logging.String("provider", p.Name()), logging.String("user", username))
	return nil
}

// IsLoggedIn asks the server whether username has a live session.
func (p *Provider) IsLoggedIn(ctx context.Context, username string) (bool, error) {
	req := httpx.Get("v1/user/isloggedin", url.Values{"userName": {username}})
	resp, err := p.driver.client.Do(ctx, req)
	if err != nil {
		return false, err
	}
	if !resp.OK() {
		return false, nil
	}
	var body struct {
		LoggedIn bool `json:"loggedin"`
	}
	if err := resp.Decode(&body); err != nil {
		return false, err
	}
	return body.LoggedIn, nil
}

// ListMounts returns one mount per pod, rooted at "/".
func (p *Provider) ListMounts(ctx context.Context) ([]driver.Mount, error) {
	resp, err := p.driver.client.Do(ctx, httpx.Get("v1/pod/ls", nil))
	if err != nil {
		return nil, err
	}
	if !resp.OK() {
		return []driver.Mount{}, nil
	}
	var body struct {
		Pods       []string `json:"pods"`
		SharedPods []string `json:"sharedPods"`
	}
	if err := resp.Decode(&body); err != nil {
		return nil, err
	}
	mounts := make([]driver.Mount, 0, len(body.Pods))
	for _, pod := range body.Pods {
		mounts = append(mounts, driver.Mount{Name: pod, Path: "/"})
	}
	return mounts, nil
}

// OpenPod opens the pod backing mount.
func (p *Provider) OpenPod(ctx context.Context, mount driver.Mount) error {
	return p.podCall(ctx, "v1/pod/open", mount)
}

// ClosePod closes the pod backing mount.
func (p *Provider) ClosePod(ctx context.Context, mount driver.Mount) error {
	return p.podCall(ctx, "v1/pod/close", mount)
}

func (p *Provider) podCall(ctx context.Context, path string, mount driver.Mount) error {
	req, err := httpx.JSON(http.MethodPost, path, map[string]string{"podName": mount.Name})
	if err != nil {
		return err
	}
	resp, err := p.driver.client.Do(ctx, req)
	if err != nil {
		return err
	}
	return resp.Err(req)
}

// switchPod is not serialized against other pod calls on the same session.
func (p *Provider) switchPod(ctx context.Context, change provider.MountChange) {
	if change.HasPrevious && change.Previous.Name != change.Current.Name {
		if err := p.ClosePod(ctx, change.Previous); err != nil {
			logging.Warn("close pod failed", logging.Mount(change.Previous.Name, change.Previous.Path), logging.Err(err))
		}
	}
	if err := p.OpenPod(ctx, change.Current); err != nil {
		logging.Warn("open pod failed", logging.Mount(change.Current.Name, change.Current.Path), logging.Err(err))
	}
}
