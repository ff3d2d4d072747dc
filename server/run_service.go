package server

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strings"
	"time"

	"connectrpc.com/connect"
	"github.com/google/uuid"
	"github.com/tliron/commonlog"

	"github.com/chazu/littlec/history"
	"github.com/chazu/littlec/lexer"
	"github.com/chazu/littlec/lib"
	"github.com/chazu/littlec/vm"
)

// Procedure paths served by RunService.
const (
	RunServiceName   = "littlec.v1.RunService"
	RunProcedure     = "/" + RunServiceName + "/Run"
	CheckProcedure   = "/" + RunServiceName + "/Check"
	HistoryProcedure = "/" + RunServiceName + "/History"
)

// ---------------------------------------------------------------------------
// Messages
// ---------------------------------------------------------------------------

// RunRequest asks the server to run a program.
type RunRequest struct {
	Source   string `json:"source"`
	Entry    string `json:"entry,omitempty"`
	Input    string `json:"input,omitempty"`    // standard input for getnum/getche
	MaxSteps int    `json:"maxSteps,omitempty"` // capped by the server limit
}

// RunResponse reports the outcome of a run. Interpreter errors are reported
// here rather than as RPC errors.
type RunResponse struct {
	ID         string     `json:"id"`
	Success    bool       `json:"success"`
	Value      int        `json:"value"`
	Ended      bool       `json:"ended,omitempty"`
	Output     string     `json:"output,omitempty"`
	Steps      int        `json:"steps"`
	Error      *ErrorInfo `json:"error,omitempty"`
	DurationMs int64      `json:"durationMs"`
}

// ErrorInfo describes a fatal interpreter error.
type ErrorInfo struct {
	Kind    string `json:"kind"`
	Message string `json:"message"`
	Name    string `json:"name,omitempty"`
	Line    int    `json:"line,omitempty"`
	Column  int    `json:"column,omitempty"`
}

// CheckRequest asks the server to prescan a program without running it.
type CheckRequest struct {
	Source string `json:"source"`
}

// CheckResponse lists the program's declarations.
type CheckResponse struct {
	Success   bool           `json:"success"`
	Functions []FunctionInfo `json:"functions,omitempty"`
	Globals   []GlobalInfo   `json:"globals,omitempty"`
	Error     *ErrorInfo     `json:"error,omitempty"`
}

// FunctionInfo describes one function table entry.
type FunctionInfo struct {
	Name      string `json:"name"`
	Signature string `json:"signature"`
	Line      int    `json:"line"`
}

// GlobalInfo describes one global variable.
type GlobalInfo struct {
	Name string `json:"name"`
	Type string `json:"type"`
}

// HistoryRequest asks for recent runs.
type HistoryRequest struct {
	Limit int `json:"limit,omitempty"`
}

// HistoryResponse lists recent runs, newest first.
type HistoryResponse struct {
	Runs []RunSummary `json:"runs"`
}

// RunSummary is one history entry.
type RunSummary struct {
	ID        string `json:"id"`
	Status    string `json:"status"`
	Value     int    `json:"value"`
	ErrorKind string `json:"errorKind,omitempty"`
	Started   string `json:"started"`
	Steps     int    `json:"steps"`
}

func errorInfo(err error) *ErrorInfo {
	var e *vm.Error
	if !errors.As(err, &e) {
		return &ErrorInfo{Kind: "internal", Message: err.Error()}
	}
	return &ErrorInfo{
		Kind:    e.Kind.String(),
		Message: e.Error(),
		Name:    e.Name,
		Line:    e.Pos.Line,
		Column:  e.Pos.Column,
	}
}

// ---------------------------------------------------------------------------
// JSON codec
// ---------------------------------------------------------------------------

// jsonCodec serializes plain Go messages. It is registered under the name
// "json", replacing Connect's protobuf JSON codec.
type jsonCodec struct{}

func (jsonCodec) Name() string { return "json" }

func (jsonCodec) Marshal(msg any) ([]byte, error) {
	return json.Marshal(msg)
}

func (jsonCodec) Unmarshal(data []byte, msg any) error {
	if len(bytes.TrimSpace(data)) == 0 {
		return nil
	}
	return json.Unmarshal(data, msg)
}

// ---------------------------------------------------------------------------
// RunService
// ---------------------------------------------------------------------------

// RunService runs and checks Little C programs over Connect.
type RunService struct {
	pool    *RunPool
	store   *history.Store
	limits  vm.Limits
	timeout time.Duration
	log     commonlog.Logger
}

// NewRunService creates a RunService. store may be nil to disable history.
func NewRunService(pool *RunPool, store *history.Store, limits vm.Limits, timeout time.Duration) *RunService {
	return &RunService{
		pool:    pool,
		store:   store,
		limits:  limits,
		timeout: timeout,
		log:     commonlog.GetLogger("littlec.server"),
	}
}

// Handlers returns the service's procedure paths and handlers.
func (s *RunService) Handlers(opts ...connect.HandlerOption) map[string]http.Handler {
	opts = append([]connect.HandlerOption{connect.WithCodec(jsonCodec{})}, opts...)
	return map[string]http.Handler{
		RunProcedure:     connect.NewUnaryHandler(RunProcedure, s.Run, opts...),
		CheckProcedure:   connect.NewUnaryHandler(CheckProcedure, s.Check, opts...),
		HistoryProcedure: connect.NewUnaryHandler(HistoryProcedure, s.History, opts...),
	}
}

// Run executes a program on the run pool.
func (s *RunService) Run(
	ctx context.Context,
	req *connect.Request[RunRequest],
) (*connect.Response[RunResponse], error) {
	msg := req.Msg
	if strings.TrimSpace(msg.Source) == "" {
		return nil, connect.NewError(connect.CodeInvalidArgument, fmt.Errorf("source is required"))
	}
	if msg.MaxSteps < 0 {
		return nil, connect.NewError(connect.CodeInvalidArgument, fmt.Errorf("maxSteps must not be negative"))
	}

	if s.timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, s.timeout)
		defer cancel()
	}

	result, err := s.pool.Do(ctx, func(ctx context.Context) any {
		return s.run(ctx, msg)
	})
	if err != nil {
		return nil, poolError(err)
	}
	resp := result.(*RunResponse)

	if s.store != nil {
		s.record(ctx, msg, resp)
	} else {
		resp.ID = uuid.New().String()
	}
	return connect.NewResponse(resp), nil
}

// poolError maps a failed pool submission to a Connect error.
func poolError(err error) error {
	switch {
	case errors.Is(err, context.DeadlineExceeded):
		return connect.NewError(connect.CodeDeadlineExceeded, err)
	case errors.Is(err, context.Canceled):
		return connect.NewError(connect.CodeCanceled, err)
	}
	return connect.NewError(connect.CodeUnavailable, err)
}

func (s *RunService) run(ctx context.Context, msg *RunRequest) *RunResponse {
	limits := s.limits
	if msg.MaxSteps > 0 && (limits.MaxSteps == 0 || msg.MaxSteps < limits.MaxSteps) {
		limits.MaxSteps = msg.MaxSteps
	}

	var out bytes.Buffer
	resp := &RunResponse{}
	start := time.Now()
	defer func() {
		resp.Output = out.String()
		resp.DurationMs = time.Since(start).Milliseconds()
	}()

	in, err := vm.NewInterpreter(msg.Source, vm.Config{
		Limits:     limits,
		Entry:      msg.Entry,
		Intrinsics: lib.Standard(strings.NewReader(msg.Input), &out),
	})
	if err != nil {
		resp.Error = errorInfo(err)
		return resp
	}

	res, err := in.RunContext(ctx)
	resp.Value = res.Value
	resp.Ended = res.Ended
	resp.Steps = res.Steps
	if err != nil {
		resp.Error = errorInfo(err)
		return resp
	}
	resp.Success = true
	return resp
}

func (s *RunService) record(ctx context.Context, msg *RunRequest, resp *RunResponse) {
	r := history.Run{
		Program:  "-",
		Entry:    msg.Entry,
		Status:   history.StatusOK,
		Value:    resp.Value,
		Output:   resp.Output,
		Steps:    resp.Steps,
		Duration: time.Duration(resp.DurationMs) * time.Millisecond,
	}
	if r.Entry == "" {
		r.Entry = vm.DefaultEntry
	}
	switch {
	case resp.Error != nil:
		r.Status = history.StatusError
		r.ErrorKind = resp.Error.Kind
		r.Error = resp.Error.Message
	case resp.Ended:
		r.Status = history.StatusEnded
	}

	saved, err := s.store.Record(context.WithoutCancel(ctx), r)
	if err != nil {
		s.log.Errorf("recording run: %v", err)
		resp.ID = uuid.New().String()
		return
	}
	resp.ID = saved.ID
}

// Check prescans a program and lists its functions and globals.
func (s *RunService) Check(
	ctx context.Context,
	req *connect.Request[CheckRequest],
) (*connect.Response[CheckResponse], error) {
	if strings.TrimSpace(req.Msg.Source) == "" {
		return nil, connect.NewError(connect.CodeInvalidArgument, fmt.Errorf("source is required"))
	}

	result, err := s.pool.Do(ctx, func(context.Context) any {
		return check(req.Msg.Source, s.limits)
	})
	if err != nil {
		return nil, poolError(err)
	}
	return connect.NewResponse(result.(*CheckResponse)), nil
}

func check(src string, limits vm.Limits) *CheckResponse {
	in, err := vm.NewInterpreter(src, vm.Config{Limits: limits})
	if err != nil {
		return &CheckResponse{Error: errorInfo(err)}
	}
	if err := in.Prescan(); err != nil {
		return &CheckResponse{Error: errorInfo(err)}
	}

	resp := &CheckResponse{Success: true}
	lx := lexer.NewLexer(src)
	for _, f := range in.Functions() {
		resp.Functions = append(resp.Functions, FunctionInfo{
			Name:      f.Name,
			Signature: f.Signature(),
			Line:      lx.Position(f.Offset).Line,
		})
	}
	for _, g := range in.Globals() {
		resp.Globals = append(resp.Globals, GlobalInfo{Name: g.Name, Type: g.Type.String()})
	}
	return resp
}

// History lists recent runs.
func (s *RunService) History(
	ctx context.Context,
	req *connect.Request[HistoryRequest],
) (*connect.Response[HistoryResponse], error) {
	if s.store == nil {
		return nil, connect.NewError(connect.CodeUnimplemented, fmt.Errorf("run history is disabled"))
	}
	runs, err := s.store.Recent(ctx, req.Msg.Limit)
	if err != nil {
		return nil, connect.NewError(connect.CodeInternal, err)
	}

	resp := &HistoryResponse{Runs: []RunSummary{}}
	for _, r := range runs {
		resp.Runs = append(resp.Runs, RunSummary{
			ID:        r.ID,
			Status:    string(r.Status),
			Value:     r.Value,
			ErrorKind: r.ErrorKind,
			Started:   r.Started.UTC().Format(time.RFC3339),
			Steps:     r.Steps,
		})
	}
	return connect.NewResponse(resp), nil
}

// ---------------------------------------------------------------------------
// Client
// ---------------------------------------------------------------------------

// Client calls a remote RunService.
type Client struct {
	run     *connect.Client[RunRequest, RunResponse]
	check   *connect.Client[CheckRequest, CheckResponse]
	history *connect.Client[HistoryRequest, HistoryResponse]
}

// NewClient creates a client for the server at baseURL, e.g.
// "http://localhost:8765".
func NewClient(httpClient connect.HTTPClient, baseURL string) *Client {
	baseURL = strings.TrimRight(baseURL, "/")
	codec := connect.WithCodec(jsonCodec{})
	return &Client{
		run:     connect.NewClient[RunRequest, RunResponse](httpClient, baseURL+RunProcedure, codec),
		check:   connect.NewClient[CheckRequest, CheckResponse](httpClient, baseURL+CheckProcedure, codec),
		history: connect.NewClient[HistoryRequest, HistoryResponse](httpClient, baseURL+HistoryProcedure, codec),
	}
}

// Run runs a program remotely.
func (c *Client) Run(ctx context.Context, req *RunRequest) (*RunResponse, error) {
	resp, err := c.run.CallUnary(ctx, connect.NewRequest(req))
	if err != nil {
		return nil, err
	}
	return resp.Msg, nil
}

// Check prescans a program remotely.
func (c *Client) Check(ctx context.Context, req *CheckRequest) (*CheckResponse, error) {
	resp, err := c.check.CallUnary(ctx, connect.NewRequest(req))
	if err != nil {
		return nil, err
	}
	return resp.Msg, nil
}

// History fetches recent runs.
func (c *Client) History(ctx context.Context, limit int) (*HistoryResponse, error) {
	resp, err := c.history.CallUnary(ctx, connect.NewRequest(&HistoryRequest{Limit: limit}))
	if err != nil {
		return nil, err
	}
	return resp.Msg, nil
}
