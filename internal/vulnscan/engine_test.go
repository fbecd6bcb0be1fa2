package vulnscan

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"net/url"
	"strings"
	"sync"
	"testing"
	"time"

	"formprobe/internal/models"
	"formprobe/internal/requester"
)

func newClient() *requester.HTTPClient {
	return requester.NewHTTPClient(requester.Options{Timeout: 2 * time.Second})
}

func TestScanReflectedXSSOnGETForm(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodGet {
			t.Errorf("expected GET, got %s", r.Method)
		}
		w.Write([]byte("<p>Results for " + r.URL.Query().Get("q") + "</p>"))
	}))
	defer server.Close()

	ep := models.Endpoint{
		Action: server.URL + "/search",
		Method: "GET",
		Inputs: []models.Input{{Name: "q", Type: "text"}},
	}
	engine := NewEngine(newClient(), DefaultPayloads(), 0)
	findings, outcome := engine.Scan(context.Background(), []models.Endpoint{ep}, nil)

	if outcome != models.Completed {
		t.Errorf("expected completed, got %s", outcome)
	}
	if len(findings) != 1 {
		t.Fatalf("expected exactly 1 finding, got %+v", findings)
	}
	want := models.Finding{Kind: models.XSS, URL: ep.Action, Method: "GET", Payload: `<script>alert("XSS")</script>`}
	if findings[0] != want {
		t.Errorf("finding = %+v, want %+v", findings[0], want)
	}
}

func TestScanErrorBasedSQLiOnPOSTForm(t *testing.T) {
	var mu sync.Mutex
	var bodies []url.Values
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodPost {
			t.Errorf("expected POST, got %s", r.Method)
		}
		r.ParseForm()
		mu.Lock()
		bodies = append(bodies, r.PostForm)
		mu.Unlock()
		if strings.Contains(r.PostForm.Get("user"), "'") {
			w.Write([]byte("You have an error in your SQL syntax near ''1'='1'"))
			return
		}
		w.Write([]byte("Login failed"))
	}))
	defer server.Close()

	ep := models.Endpoint{
		Action: server.URL + "/login",
		Method: "POST",
		Inputs: []models.Input{{Name: "user", Type: "text"}, {Name: "pass", Type: "password"}},
	}
	engine := NewEngine(newClient(), DefaultPayloads(), 0)
	findings, _ := engine.Scan(context.Background(), []models.Endpoint{ep}, nil)

	if len(findings) != 1 {
		t.Fatalf("expected exactly 1 finding, got %+v", findings)
	}
	want := models.Finding{Kind: models.SQLInjection, URL: ep.Action, Method: "POST", Payload: "' OR '1'='1"}
	if findings[0] != want {
		t.Errorf("finding = %+v, want %+v", findings[0], want)
	}

	mu.Lock()
	defer mu.Unlock()
	for _, b := range bodies {
		if b.Get("user") != b.Get("pass") {
			t.Errorf("every input must carry the same payload, got %v", b)
		}
	}
	// Two XSS payloads, then the first SQLi payload hits.
	if len(bodies) != 3 {
		t.Errorf("expected 3 requests, got %d", len(bodies))
	}
}

func TestScanFindingOrderXSSBeforeSQLi(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte("Warning: mysql_fetch_array() for " + r.URL.Query().Get("q")))
	}))
	defer server.Close()

	eps := []models.Endpoint{
		{Action: server.URL + "/a", Method: "GET", Inputs: []models.Input{{Name: "q"}}},
		{Action: server.URL + "/b", Method: "GET", Inputs: []models.Input{{Name: "q"}}},
	}
	engine := NewEngine(newClient(), DefaultPayloads(), 0)
	findings, _ := engine.Scan(context.Background(), eps, nil)

	if len(findings) != 4 {
		t.Fatalf("expected 4 findings, got %+v", findings)
	}
	wantKinds := []models.FindingKind{models.XSS, models.SQLInjection, models.XSS, models.SQLInjection}
	for i, f := range findings {
		if f.Kind != wantKinds[i] {
			t.Errorf("finding %d kind = %s, want %s", i, f.Kind, wantKinds[i])
		}
	}
	if findings[0].URL != eps[0].Action || findings[2].URL != eps[1].Action {
		t.Error("findings must follow endpoint order")
	}
}

// fakeSender answers from a function and records every request.
type fakeSender struct {
	mu      sync.Mutex
	calls   []string
	respond func(n int, method, target string, params url.Values) (requester.Response, error)
}

func (f *fakeSender) Send(ctx context.Context, method, target string, params url.Values) (requester.Response, error) {
	f.mu.Lock()
	n := len(f.calls)
	f.calls = append(f.calls, method+" "+target+"?"+params.Encode())
	f.mu.Unlock()
	return f.respond(n, method, target, params)
}

func TestProbeSwallowsTransportErrors(t *testing.T) {
	sender := &fakeSender{respond: func(n int, method, target string, params url.Values) (requester.Response, error) {
		if n == 0 {
			return requester.Response{}, errors.New("connection refused")
		}
		return requester.Response{Status: 200, Body: params.Get("q")}, nil
	}}

	var logs []string
	check := NewXSSCheck(sender, DefaultPayloads().XSS)
	ep := models.Endpoint{Action: "http://example.test/s", Method: "GET", Inputs: []models.Input{{Name: "q"}}}
	finding := check.Probe(context.Background(), ep, func(msg string) { logs = append(logs, msg) })

	if finding == nil {
		t.Fatal("expected a finding from the second payload")
	}
	if finding.Payload != `<img src=x onerror=alert("XSS")>` {
		t.Errorf("unexpected payload %q", finding.Payload)
	}
	if len(logs) != 1 || !strings.Contains(logs[0], "connection refused") {
		t.Errorf("transport failure must be logged, got %v", logs)
	}
}

func TestSQLiCheckCaseInsensitive(t *testing.T) {
	sender := &fakeSender{respond: func(n int, method, target string, params url.Values) (requester.Response, error) {
		return requester.Response{Status: 500, Body: "UNCLOSED QUOTATION MARK after the character string"}, nil
	}}
	check := NewSQLiCheck(sender, []string{"'"}, []string{"Unclosed Quotation"})
	ep := models.Endpoint{Action: "http://example.test/s", Method: "POST", Inputs: []models.Input{{Name: "id"}}}

	finding := check.Probe(context.Background(), ep, func(string) {})
	if finding == nil || finding.Kind != models.SQLInjection || finding.Payload != "'" {
		t.Errorf("unexpected finding %+v", finding)
	}
}

func TestXSSCheckRequiresUnescapedReflection(t *testing.T) {
	sender := &fakeSender{respond: func(n int, method, target string, params url.Values) (requester.Response, error) {
		escaped := strings.NewReplacer("<", "&lt;", ">", "&gt;").Replace(params.Get("q"))
		return requester.Response{Status: 200, Body: escaped}, nil
	}}
	check := NewXSSCheck(sender, DefaultPayloads().XSS)
	ep := models.Endpoint{Action: "http://example.test/s", Method: "GET", Inputs: []models.Input{{Name: "q"}}}

	if finding := check.Probe(context.Background(), ep, func(string) {}); finding != nil {
		t.Errorf("escaped reflection must not be flagged, got %+v", finding)
	}
	if len(sender.calls) != 2 {
		t.Errorf("expected both payloads tried, got %d calls", len(sender.calls))
	}
}

func TestScanSkipsEndpointsWithoutNamedInputs(t *testing.T) {
	sender := &fakeSender{respond: func(n int, method, target string, params url.Values) (requester.Response, error) {
		return requester.Response{Status: 200}, nil
	}}
	engine := NewEngine(sender, DefaultPayloads(), 0)

	eps := []models.Endpoint{
		{Action: "http://example.test/empty", Method: "GET"},
		{Action: "http://example.test/unnamed", Method: "POST", Inputs: []models.Input{{Type: "submit"}}},
	}
	findings, outcome := engine.Scan(context.Background(), eps, nil)

	if len(sender.calls) != 0 {
		t.Errorf("untestable endpoints must never be probed, got %v", sender.calls)
	}
	if len(findings) != 0 || outcome != models.Completed {
		t.Errorf("unexpected result %+v %s", findings, outcome)
	}
}

func TestScanCancel(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	sender := &fakeSender{respond: func(n int, method, target string, params url.Values) (requester.Response, error) {
		if strings.HasSuffix(target, "/b") {
			cancel()
		}
		return requester.Response{Status: 200, Body: params.Get("q")}, nil
	}}
	engine := NewEngine(sender, DefaultPayloads(), 0)

	eps := []models.Endpoint{
		{Action: "http://example.test/a", Method: "GET", Inputs: []models.Input{{Name: "q"}}},
		{Action: "http://example.test/b", Method: "GET", Inputs: []models.Input{{Name: "q"}}},
		{Action: "http://example.test/c", Method: "GET", Inputs: []models.Input{{Name: "q"}}},
	}
	var logs []string
	findings, outcome := engine.Scan(ctx, eps, func(msg string) { logs = append(logs, msg) })

	if outcome != models.Canceled {
		t.Errorf("expected canceled, got %s", outcome)
	}
	// /a yields XSS; /b's in-flight XSS request still completes and is evaluated.
	if len(findings) != 2 || findings[0].URL != eps[0].Action || findings[1].URL != eps[1].Action {
		t.Errorf("unexpected findings %+v", findings)
	}
	for _, c := range sender.calls {
		if strings.Contains(c, "/c?") {
			t.Error("endpoint after cancel was probed")
		}
	}
	if logs[len(logs)-1] != "Scan stopped by user." {
		t.Errorf("expected stop message, got %v", logs)
	}
}

func TestScanCancelDuringLastEndpoint(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	sender := &fakeSender{respond: func(n int, method, target string, params url.Values) (requester.Response, error) {
		cancel()
		return requester.Response{Status: 500, Body: "mysql error near ''"}, nil
	}}
	engine := NewEngine(sender, DefaultPayloads(), 0)

	eps := []models.Endpoint{{Action: "http://example.test/only", Method: "GET", Inputs: []models.Input{{Name: "q"}}}}
	var logs []string
	findings, outcome := engine.Scan(ctx, eps, func(msg string) { logs = append(logs, msg) })

	if outcome != models.Canceled {
		t.Errorf("a scan whose checks were cut short must be canceled, got %s", outcome)
	}
	if len(findings) != 0 {
		t.Errorf("unexpected findings %+v", findings)
	}
	if len(sender.calls) != 1 {
		t.Errorf("expected only the in-flight request, got %v", sender.calls)
	}
	if logs[len(logs)-1] != "Scan stopped by user." {
		t.Errorf("expected stop message, got %v", logs)
	}
}

func TestScanCancelDuringFinalPause(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	timer := time.AfterFunc(50*time.Millisecond, cancel)
	defer timer.Stop()

	var calls []string
	engine := NewEngineWithChecks(10*time.Second, stubCheck{kind: models.XSS, calls: &calls})
	start := time.Now()
	_, outcome := engine.Scan(ctx, []models.Endpoint{{Action: "http://example.test/", Method: "GET", Inputs: []models.Input{{Name: "q"}}}}, nil)

	if outcome != models.Canceled {
		t.Errorf("expected canceled, got %s", outcome)
	}
	if time.Since(start) > 5*time.Second {
		t.Error("pause was not interrupted by cancel")
	}
}

type stubCheck struct {
	kind  models.FindingKind
	calls *[]string
}

func (s stubCheck) Kind() models.FindingKind { return s.kind }

func (s stubCheck) Probe(ctx context.Context, ep models.Endpoint, logf LogFunc) *models.Finding {
	*s.calls = append(*s.calls, string(s.kind))
	return nil
}

func TestEngineRunsBothChecksRegardlessOfResult(t *testing.T) {
	var calls []string
	engine := NewEngineWithChecks(0, stubCheck{kind: models.XSS, calls: &calls}, stubCheck{kind: models.SQLInjection, calls: &calls})
	engine.Scan(context.Background(), []models.Endpoint{{Action: "http://example.test/", Method: "GET", Inputs: []models.Input{{Name: "q"}}}}, nil)

	if len(calls) != 2 || calls[0] != string(models.XSS) || calls[1] != string(models.SQLInjection) {
		t.Errorf("unexpected check order %v", calls)
	}
}
