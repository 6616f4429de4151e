package genui

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net"
	"net/http"
	"strings"
	"time"
)

// a minimal rest client for a message-generation provider, and a
// `ModelAdapter` over it. the provider endpoint accepts the full history plus
// tool descriptors and answers with tool calls or final text

const defaultHttpTimeout = 60 * time.Second
const defaultHttpConnectTimeout = 5 * time.Second
const defaultHttpTlsTimeout = 5 * time.Second

func defaultClient() *http.Client {
	// see https://medium.com/@nate510/don-t-use-go-s-default-http-client-4804cb19f779
	dialer := &net.Dialer{
		Timeout: defaultHttpConnectTimeout,
	}
	transport := &http.Transport{
		DialContext:         dialer.DialContext,
		TLSHandshakeTimeout: defaultHttpTlsTimeout,
	}
	return &http.Client{
		Transport: transport,
		Timeout:   defaultHttpTimeout,
	}
}

type apiCallback[R any] interface {
	Result(result R, err error)
}

// for internal use
type simpleApiCallback[R any] struct {
	callback func(result R, err error)
}

func NewApiCallback[R any](callback func(result R, err error)) apiCallback[R] {
	return &simpleApiCallback[R]{
		callback: callback,
	}
}

func NewNoopApiCallback[R any]() apiCallback[R] {
	return &simpleApiCallback[R]{
		callback: func(result R, err error) {},
	}
}

func (self *simpleApiCallback[R]) Result(result R, err error) {
	self.callback(result, err)
}

type ApiCallbackResult[R any] struct {
	Result R
	Error  error
}

func NewBlockingApiCallback[R any](ctx context.Context) (apiCallback[R], chan ApiCallbackResult[R]) {
	c := make(chan ApiCallbackResult[R], 1)
	apiCallback := NewApiCallback[R](func(result R, err error) {
		select {
		case c <- ApiCallbackResult[R]{
			Result: result,
			Error:  err,
		}:
		case <-ctx.Done():
		}
	})
	return apiCallback, c
}

type ModelApi struct {
	ctx    context.Context
	cancel context.CancelFunc

	apiUrl string

	authToken string
}

func NewModelApi(apiUrl string) *ModelApi {
	return NewModelApiWithContext(context.Background(), apiUrl)
}

func NewModelApiWithContext(ctx context.Context, apiUrl string) *ModelApi {
	cancelCtx, cancel := context.WithCancel(ctx)
	return &ModelApi{
		ctx:    cancelCtx,
		cancel: cancel,
		apiUrl: apiUrl,
	}
}

func (self *ModelApi) SetAuthToken(authToken string) {
	self.authToken = authToken
}

func (self *ModelApi) Close() {
	self.cancel()
}

type GenerateCallback apiCallback[*GenerateResult]

type GenerateArgs struct {
	Messages []*ChatMessage    `json:"messages"`
	Tools    []*ToolDescriptor `json:"tools,omitempty"`
}

type GenerateResult struct {
	Text      *string              `json:"text,omitempty"`
	ToolCalls []*ToolCall          `json:"toolCalls,omitempty"`
	Error     *GenerateResultError `json:"error,omitempty"`
}

type GenerateResultError struct {
	Message string `json:"message"`
}

func (self *ModelApi) Generate(generate *GenerateArgs, callback GenerateCallback) {
	go post(
		self.ctx,
		fmt.Sprintf("%s/v1/generate", self.apiUrl),
		generate,
		self.authToken,
		&GenerateResult{},
		callback,
	)
}

func (self *ModelApi) GenerateSync(ctx context.Context, generate *GenerateArgs) (*GenerateResult, error) {
	callback, c := NewBlockingApiCallback[*GenerateResult](ctx)
	self.Generate(generate, callback)
	select {
	case result := <-c:
		return result.Result, result.Error
	case <-ctx.Done():
		return nil, ctx.Err()
	}
}

// ModelAdapter
func (self *ModelApi) Call(ctx context.Context, history []*ChatMessage, tools []*ToolDescriptor) (*ModelResponse, error) {
	result, err := self.GenerateSync(ctx, &GenerateArgs{
		Messages: history,
		Tools:    tools,
	})
	if err != nil {
		return nil, err
	}
	if result.Error != nil {
		return nil, errors.New(result.Error.Message)
	}
	response := &ModelResponse{
		ToolCalls: result.ToolCalls,
	}
	if result.Text != nil {
		response.Text = *result.Text
		response.HasText = true
	}
	return response, nil
}

func post[R any](ctx context.Context, url string, args any, authToken string, result R, callback apiCallback[R]) (R, error) {
	var requestBodyBytes []byte
	if args == nil {
		requestBodyBytes = make([]byte, 0)
	} else {
		var err error
		requestBodyBytes, err = json.Marshal(args)
		if err != nil {
			var empty R
			callback.Result(empty, err)
			return empty, err
		}
	}

	req, err := http.NewRequestWithContext(ctx, "POST", url, bytes.NewReader(requestBodyBytes))
	if err != nil {
		var empty R
		callback.Result(empty, err)
		return empty, err
	}

	req.Header.Add("Content-Type", "application/json")

	if authToken != "" {
		auth := fmt.Sprintf("Bearer %s", authToken)
		req.Header.Add("Authorization", auth)
	}

	client := defaultClient()
	r, err := client.Do(req)
	if err != nil {
		var empty R
		callback.Result(empty, err)
		return empty, err
	}
	defer r.Body.Close()

	responseBodyBytes, err := io.ReadAll(r.Body)

	if http.StatusOK != r.StatusCode {
		// the response body is the error message
		errorMessage := strings.TrimSpace(string(responseBodyBytes))
		err = errors.New(errorMessage)
		callback.Result(result, err)
		return result, err
	}

	if err != nil {
		callback.Result(result, err)
		return result, err
	}

	err = json.Unmarshal(responseBodyBytes, &result)
	if err != nil {
		var empty R
		callback.Result(empty, err)
		return empty, err
	}

	callback.Result(result, nil)
	return result, nil
}
