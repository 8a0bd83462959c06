package er2

import (
	"encoding/json"
	"strings"
	"testing"
)

func TestReport_MarshalJSON_ErrorsDefaultsToEmptyList(t *testing.T) {
	data, err := json.Marshal(&Report{})
	if err != nil {
		t.Fatalf("Marshal returned error: %v", err)
	}

	var body map[string]json.RawMessage
	if err := json.Unmarshal(data, &body); err != nil {
		t.Fatalf("Unmarshal returned error: %v", err)
	}
	if string(body["errors"]) != "[]" {
		t.Errorf("errors = %s, want []", body["errors"])
	}
	if _, ok := body["throwable"]; ok {
		t.Error("throwable should be absent from an errors report")
	}
	for _, key := range []string{"environment", "database", "cookies", "get", "post", "session"} {
		if string(body[key]) != "null" {
			t.Errorf("%s = %s, want null for a nil section", key, body[key])
		}
	}
}

func TestReport_MarshalJSON_Throwable(t *testing.T) {
	report := &Report{
		Throwable: &ExceptionRecord{
			ClassName: "outer",
			Message:   "wrapped",
			Previous:  &ExceptionRecord{ClassName: "inner", Code: 2, Message: "root"},
		},
	}

	data, err := json.Marshal(report)
	if err != nil {
		t.Fatalf("Marshal returned error: %v", err)
	}
	s := string(data)

	if strings.Contains(s, `"errors"`) {
		t.Errorf("exception report should not carry errors: %s", s)
	}
	want := `"throwable":{"class_name":"outer","error_no":0,"message":"wrapped","file":"","line":0,"previous":{"class_name":"inner","error_no":2,"message":"root","file":"","line":0,"previous":null}}`
	if !strings.Contains(s, want) {
		t.Errorf("throwable encoding mismatch:\n got %s\nwant substring %s", s, want)
	}
}

func TestReport_MarshalJSON_BothPayloadsFails(t *testing.T) {
	report := &Report{
		Errors:    []ErrorRecord{{Message: "x"}},
		Throwable: &ExceptionRecord{Message: "y"},
	}
	if _, err := json.Marshal(report); err == nil {
		t.Error("expected an error for a report carrying both errors and throwable")
	}
}

func TestReport_MarshalJSON_KeyNames(t *testing.T) {
	report := &Report{
		Authentication: Authentication{Token: "t", ServiceID: "s", ClientVersion: ClientVersion, ProtocolVersion: ProtocolVersion},
		General:        General{SessionID: NoSessionID, HostOS: Some("linux"), DebugMode: Some(false)},
		Request:        RequestInfo{Method: "GET", TCPPort: 443, Secure: true},
		Errors:         []ErrorRecord{{Fatal: true, Code: 1, Message: "m", File: "f", Line: 3}},
	}

	data, err := json.Marshal(report)
	if err != nil {
		t.Fatalf("Marshal returned error: %v", err)
	}
	s := string(data)

	for _, want := range []string{
		`"authentication":{"token":"t","service_id":"s","er2_version":"2.1.1","er2_protocol_version":2}`,
		`"er2_session_id":"No session id"`,
		`"host_name":null`,
		`"host_os":"linux"`,
		`"php_version":""`,
		`"php_mode":""`,
		`"php_mem_usage":0`,
		`"environment_name":null`,
		`"debug_mode":false`,
		`"tcp_port":443`,
		`"secure_connection":true`,
		`"errors":[{"fatal":true,"error_no":1,"message":"m","file":"f","line":3}]`,
	} {
		if !strings.Contains(s, want) {
			t.Errorf("encoding should contain %s\n got %s", want, s)
		}
	}
	if strings.Contains(s, `"ID"`) {
		t.Error("report id must not be serialized")
	}
}

func TestReport_Kind(t *testing.T) {
	if got := (&Report{}).Kind(); got != "errors" {
		t.Errorf("Kind() = %s, want errors", got)
	}
	if got := (&Report{Throwable: &ExceptionRecord{}}).Kind(); got != "exception" {
		t.Errorf("Kind() = %s, want exception", got)
	}
}

func TestExceptionRecord_Depth(t *testing.T) {
	var nilRecord *ExceptionRecord
	if nilRecord.Depth() != 0 {
		t.Errorf("nil Depth() = %d, want 0", nilRecord.Depth())
	}
	chain := &ExceptionRecord{Previous: &ExceptionRecord{Previous: &ExceptionRecord{}}}
	if chain.Depth() != 3 {
		t.Errorf("Depth() = %d, want 3", chain.Depth())
	}
}

func TestOptional_JSON(t *testing.T) {
	type wrapper struct {
		Name Optional[string] `json:"name"`
		Flag Optional[bool]   `json:"flag"`
	}

	data, err := json.Marshal(wrapper{Name: Some("web-1")})
	if err != nil {
		t.Fatalf("Marshal returned error: %v", err)
	}
	if string(data) != `{"name":"web-1","flag":null}` {
		t.Errorf("Marshal = %s", data)
	}

	var decoded wrapper
	if err := json.Unmarshal([]byte(`{"name":null,"flag":true}`), &decoded); err != nil {
		t.Fatalf("Unmarshal returned error: %v", err)
	}
	if _, ok := decoded.Name.Get(); ok {
		t.Error("null should decode as absent")
	}
	if v, ok := decoded.Flag.Get(); !ok || !v {
		t.Errorf("flag = %v, %v; want true, true", v, ok)
	}
}
