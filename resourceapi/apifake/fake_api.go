package apifake

import (
	"context"
	"net/http"
	"sync"
	"time"

	"github.com/jrsteele09/go-admin-auth/resourceapi"
)

// Method names recorded in the call log
const (
	MethodLogin           = "Login"
	MethodRegister        = "Register"
	MethodRefreshToken    = "RefreshToken"
	MethodLogout          = "Logout"
	MethodGetCurrentUser  = "GetCurrentUser"
	MethodGenerateCaptcha = "GenerateCaptcha"
)

var _ resourceapi.API = (*FakeAPI)(nil)

// Call is one recorded invocation. At comes from a logical clock that advances by a
// millisecond per call, so later calls always carry strictly later timestamps.
type Call struct {
	Method string
	Seq    int
	At     time.Time
	Arg    any
}

// FakeAPI is a scriptable resource API. Unset handlers answer 501.
type FakeAPI struct {
	LoginFunc           func(ctx context.Context, req resourceapi.LoginRequest) (*resourceapi.LoginResponse, error)
	RegisterFunc        func(ctx context.Context, req resourceapi.RegisterRequest) (*resourceapi.User, error)
	RefreshTokenFunc    func(ctx context.Context, refreshToken string) (*resourceapi.RefreshResponse, error)
	LogoutFunc          func(ctx context.Context, refreshToken string) error
	GetCurrentUserFunc  func(ctx context.Context) (*resourceapi.User, error)
	GenerateCaptchaFunc func(ctx context.Context) (*resourceapi.Captcha, error)

	mu    sync.Mutex
	calls []Call
	epoch time.Time
}

func NewFakeAPI() *FakeAPI {
	return &FakeAPI{epoch: time.UnixMilli(1_700_000_000_000)}
}

func notImplemented() error {
	return resourceapi.NewAPIError(http.StatusNotImplemented, "not implemented", "")
}

func (f *FakeAPI) record(method string, arg any) {
	f.mu.Lock()
	defer f.mu.Unlock()
	seq := len(f.calls) + 1
	f.calls = append(f.calls, Call{
		Method: method,
		Seq:    seq,
		At:     f.epoch.Add(time.Duration(seq) * time.Millisecond),
		Arg:    arg,
	})
}

// Calls returns a copy of the call log in invocation order.
func (f *FakeAPI) Calls() []Call {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]Call(nil), f.calls...)
}

// CallsTo returns the recorded calls to method.
func (f *FakeAPI) CallsTo(method string) []Call {
	var out []Call
	for _, c := range f.Calls() {
		if c.Method == method {
			out = append(out, c)
		}
	}
	return out
}

func (f *FakeAPI) CallCount(method string) int {
	return len(f.CallsTo(method))
}

func (f *FakeAPI) Login(ctx context.Context, req resourceapi.LoginRequest) (*resourceapi.LoginResponse, error) {
	f.record(MethodLogin, req)
	if f.LoginFunc == nil {
		return nil, notImplemented()
	}
	return f.LoginFunc(ctx, req)
}

func (f *FakeAPI) Register(ctx context.Context, req resourceapi.RegisterRequest) (*resourceapi.User, error) {
	f.record(MethodRegister, req)
	if f.RegisterFunc == nil {
		return nil, notImplemented()
	}
	return f.RegisterFunc(ctx, req)
}

func (f *FakeAPI) RefreshToken(ctx context.Context, refreshToken string) (*resourceapi.RefreshResponse, error) {
	f.record(MethodRefreshToken, refreshToken)
	if f.RefreshTokenFunc == nil {
		return nil, notImplemented()
	}
	return f.RefreshTokenFunc(ctx, refreshToken)
}

func (f *FakeAPI) Logout(ctx context.Context, refreshToken string) error {
	f.record(MethodLogout, refreshToken)
	if f.LogoutFunc == nil {
		return notImplemented()
	}
	return f.LogoutFunc(ctx, refreshToken)
}

func (f *FakeAPI) GetCurrentUser(ctx context.Context) (*resourceapi.User, error) {
	f.record(MethodGetCurrentUser, nil)
	if f.GetCurrentUserFunc == nil {
		return nil, notImplemented()
	}
	return f.GetCurrentUserFunc(ctx)
}

func (f *FakeAPI) GenerateCaptcha(ctx context.Context) (*resourceapi.Captcha, error) {
	f.record(MethodGenerateCaptcha, nil)
	if f.GenerateCaptchaFunc == nil {
		return nil, notImplemented()
	}
	return f.GenerateCaptchaFunc(ctx)
}
