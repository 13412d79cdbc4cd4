package canonical

import (
	"encoding/json"
	"testing"
)

func TestMarshalJSON_DifferentKeyOrder(t *testing.T) {
	json1 := `{
		"signatures": [],
		"signers": ["eth|0xabc", "eth|0xdef"],
		"threshold": 2,
		"walletId": "w-1",
		"signing": "ETH",
		"uniqueKey": "tx-1"
	}`

	json2 := `{
		"signing": "ETH",
		"uniqueKey": "tx-1",
		"signatures": [],
		"signers": ["eth|0xabc", "eth|0xdef"],
		"threshold": 2,
		"walletId": "w-1"
	}`

	var obj1, obj2 map[string]interface{}
	if err := json.Unmarshal([]byte(json1), &obj1); err != nil {
		t.Fatalf("Failed to unmarshal json1: %v", err)
	}
	if err := json.Unmarshal([]byte(json2), &obj2); err != nil {
		t.Fatalf("Failed to unmarshal json2: %v", err)
	}

	canonical1, err := MarshalJSON(obj1)
	if err != nil {
		t.Fatalf("MarshalJSON failed for obj1: %v", err)
	}

	canonical2, err := MarshalJSON(obj2)
	if err != nil {
		t.Fatalf("MarshalJSON failed for obj2: %v", err)
	}

	if string(canonical1) != string(canonical2) {
		t.Errorf("Expected same canonical JSON for different key orders\nGot:\n%s\n%s", string(canonical1), string(canonical2))
	}
}

func TestMarshalJSON_MultipleRuns(t *testing.T) {
	jsonStr := `{
		"signatures": [],
		"signers": ["eth|0xabc", "eth|0xdef"],
		"threshold": 2,
		"walletId": "w-1",
		"signing": "ETH",
		"uniqueKey": "tx-1"
	}`

	var expected string
	for i := 0; i < 10; i++ {
		var obj map[string]interface{}
		if err := json.Unmarshal([]byte(jsonStr), &obj); err != nil {
			t.Fatalf("Failed to unmarshal: %v", err)
		}

		canonical, err := MarshalJSON(obj)
		if err != nil {
			t.Fatalf("MarshalJSON failed: %v", err)
		}

		if i == 0 {
			expected = string(canonical)
		} else if string(canonical) != expected {
			t.Errorf("Run %d produced different output:\nExpected: %s\nGot: %s", i, expected, string(canonical))
		}
	}
}

func TestMarshalJSON_KeysSorted(t *testing.T) {
	obj := map[string]interface{}{
		"z": "last",
		"a": "first",
		"m": "middle",
	}

	canonical, err := MarshalJSON(obj)
	if err != nil {
		t.Fatalf("MarshalJSON failed: %v", err)
	}

	expected := `{"a":"first","m":"middle","z":"last"}`
	if string(canonical) != expected {
		t.Errorf("Expected keys to be sorted\nExpected: %s\nGot: %s", expected, string(canonical))
	}
}

func TestMarshalJSON_NestedObjects(t *testing.T) {
	obj := map[string]interface{}{
		"outer2": map[string]interface{}{
			"inner2": "b",
			"inner1": "a",
		},
		"outer1": map[string]interface{}{
			"inner2": "d",
			"inner1": "c",
		},
	}

	canonical, err := MarshalJSON(obj)
	if err != nil {
		t.Fatalf("MarshalJSON failed: %v", err)
	}

	// Keys should be sorted at all levels
	expected := `{"outer1":{"inner1":"c","inner2":"d"},"outer2":{"inner1":"a","inner2":"b"}}`
	if string(canonical) != expected {
		t.Errorf("Expected nested keys to be sorted\nExpected: %s\nGot: %s", expected, string(canonical))
	}
}

func TestMarshalJSON_Arrays(t *testing.T) {
	obj := map[string]interface{}{
		"items": []interface{}{"a", "b", "c"},
		"count": 3,
	}

	canonical, err := MarshalJSON(obj)
	if err != nil {
		t.Fatalf("MarshalJSON failed: %v", err)
	}

	expected := `{"count":3,"items":["a","b","c"]}`
	if string(canonical) != expected {
		t.Errorf("Expected:\n%s\nGot:\n%s", expected, string(canonical))
	}
}

func TestPayload_OmitsSignatureFieldsAndNulls(t *testing.T) {
	raw := json.RawMessage(`{
		"signing": "ETH",
		"uniqueKey": "abc123",
		"signature": "0xdeadbeef",
		"signatures": [{"signature":"0x01"}],
		"prefix": "tens-city/v1",
		"amount": 10,
		"memo": null
	}`)

	payload, err := Payload(raw, "")
	if err != nil {
		t.Fatalf("Payload failed: %v", err)
	}

	expected := `{"amount":10,"signing":"ETH","uniqueKey":"abc123"}`
	if string(payload) != expected {
		t.Errorf("expected %s, got %s", expected, string(payload))
	}
}

func TestPayload_PrependsPrefix(t *testing.T) {
	raw := json.RawMessage(`{"a":1}`)

	withPrefix, err := Payload(raw, "tens-city/v1:")
	if err != nil {
		t.Fatalf("Payload failed: %v", err)
	}
	withoutPrefix, err := Payload(raw, "")
	if err != nil {
		t.Fatalf("Payload failed: %v", err)
	}

	expected := "tens-city/v1:" + string(withoutPrefix)
	if string(withPrefix) != expected {
		t.Errorf("expected %s, got %s", expected, string(withPrefix))
	}
}

func TestPayload_Deterministic(t *testing.T) {
	raw1 := json.RawMessage(`{"b":2,"a":1,"signature":"0x1"}`)
	raw2 := json.RawMessage(`{"a":1,"signature":"0x2","b":2}`)

	p1, err := Payload(raw1, "")
	if err != nil {
		t.Fatalf("Payload failed: %v", err)
	}
	p2, err := Payload(raw2, "")
	if err != nil {
		t.Fatalf("Payload failed: %v", err)
	}
	if string(p1) != string(p2) {
		t.Errorf("expected identical canonical bytes regardless of signature value, got %s vs %s", p1, p2)
	}
}

func TestMarshalJSON_Primitives(t *testing.T) {
	testCases := []struct {
		name     string
		input    interface{}
		expected string
	}{
		{"string", "hello", `"hello"`},
		{"number", 42, `42`},
		{"float", 3.14, `3.14`},
		{"bool true", true, `true`},
		{"bool false", false, `false`},
		{"null", nil, `null`},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			obj := map[string]interface{}{
				"value": tc.input,
			}

			canonical, err := MarshalJSON(obj)
			if err != nil {
				t.Fatalf("MarshalJSON failed: %v", err)
			}

			expected := `{"value":` + tc.expected + `}`
			if string(canonical) != expected {
				t.Errorf("Expected:\n%s\nGot:\n%s", expected, string(canonical))
			}
		})
	}
}
