package models

import (
	"testing"
	"time"
)

func TestSyncIncomplete(t *testing.T) {
	tests := []struct {
		state string
		want  bool
	}{
		{StateDormant, false},
		{StateQueued, true},
		{StateRunning, true},
		{StateFailed, false},
		{StateTimeout, false},
	}

	for _, tt := range tests {
		t.Run(tt.state, func(t *testing.T) {
			s := Sync{State: tt.state}
			if got := s.Incomplete(); got != tt.want {
				t.Errorf("Incomplete() in state %s = %v, want %v", tt.state, got, tt.want)
			}
		})
	}
}

func TestCustomerValidate(t *testing.T) {
	c := Customer{OrganizationID: 1, ExternalServiceID: 10, Name: "Acme"}
	if errs := c.Validate(); errs.Any() {
		t.Errorf("valid customer produced errors: %v", errs.Messages())
	}

	blank := Customer{OrganizationID: 1}
	errs := blank.Validate()
	if !errs.Any() {
		t.Fatal("expected errors for blank customer")
	}
	if len(errs["external_service_id"]) == 0 || len(errs["name"]) == 0 {
		t.Errorf("expected external_service_id and name errors, got %v", errs.Messages())
	}
}

func TestInvoiceValidate(t *testing.T) {
	i := Invoice{OrganizationID: 1, CustomerID: 2, ExternalServiceID: 10, Number: "INV-1", AmountCents: 100}
	if errs := i.Validate(); errs.Any() {
		t.Errorf("valid invoice produced errors: %v", errs.Messages())
	}

	missing := Invoice{OrganizationID: 1, ExternalServiceID: 10, Number: "INV-1"}
	errs := missing.Validate()
	if len(errs["customer_id"]) == 0 {
		t.Errorf("expected customer_id error, got %v", errs.Messages())
	}

	negative := Invoice{OrganizationID: 1, CustomerID: 2, ExternalServiceID: 10, Number: "INV-1", AmountCents: -1}
	if errs := negative.Validate(); len(errs["amount_cents"]) == 0 {
		t.Errorf("expected amount_cents error, got %v", errs.Messages())
	}
}

func TestPaymentValidate(t *testing.T) {
	p := Payment{OrganizationID: 1, InvoiceID: 3, ExternalServiceID: 10, AmountCents: 100}
	if errs := p.Validate(); errs.Any() {
		t.Errorf("valid payment produced errors: %v", errs.Messages())
	}

	missing := Payment{OrganizationID: 1, ExternalServiceID: 10, AmountCents: 100}
	if errs := missing.Validate(); len(errs["invoice_id"]) == 0 {
		t.Errorf("expected invoice_id error, got %v", errs.Messages())
	}

	zeroAmount := Payment{OrganizationID: 1, InvoiceID: 3, ExternalServiceID: 10}
	if errs := zeroAmount.Validate(); len(errs["amount_cents"]) == 0 {
		t.Errorf("expected amount_cents error, got %v", errs.Messages())
	}
}

func TestValidationErrorsDelete(t *testing.T) {
	errs := ValidationErrors{}
	errs.Add("customer_id", "can't be blank")
	errs.Add("name", "can't be blank")

	if !errs.Delete("customer_id") {
		t.Error("expected Delete to report true for present field")
	}
	if errs.Delete("customer_id") {
		t.Error("expected Delete to report false after removal")
	}
	if !errs.Any() {
		t.Error("remaining errors should still be present")
	}
}

func TestValidationErrorsMessages(t *testing.T) {
	errs := ValidationErrors{}
	errs.Add("name", "can't be blank")
	errs.Add("amount_cents", "must be greater than 0")

	got := errs.Messages()
	want := []string{"amount_cents must be greater than 0", "name can't be blank"}
	if len(got) != len(want) {
		t.Fatalf("expected %d messages, got %d", len(want), len(got))
	}
	for i := range want {
		if got[i] != want[i] {
			t.Errorf("message %d: expected %q, got %q", i, want[i], got[i])
		}
	}
}

func TestRecordDataInt64(t *testing.T) {
	data := RecordData{
		"as_float": float64(42),
		"as_int":   7,
		"as_int64": int64(9),
		"as_text":  "nope",
	}

	for key, want := range map[string]int64{"as_float": 42, "as_int": 7, "as_int64": 9} {
		got, ok := data.Int64(key)
		if !ok || got != want {
			t.Errorf("Int64(%q) = %d, %v; want %d, true", key, got, ok, want)
		}
	}
	if _, ok := data.Int64("as_text"); ok {
		t.Error("Int64 should reject non-numeric values")
	}
	if _, ok := data.Int64("missing"); ok {
		t.Error("Int64 should reject missing keys")
	}
}

func TestRecordDataInt64s(t *testing.T) {
	data := RecordData{
		"decoded": []any{float64(1), float64(2), float64(3)},
		"native":  []int64{4, 5},
	}

	got := data.Int64s("decoded")
	if len(got) != 3 || got[0] != 1 || got[2] != 3 {
		t.Errorf("Int64s(decoded) = %v", got)
	}
	if got := data.Int64s("native"); len(got) != 2 {
		t.Errorf("Int64s(native) = %v", got)
	}
	if got := data.Int64s("missing"); got != nil {
		t.Errorf("Int64s(missing) = %v, want nil", got)
	}
}

func TestRecordDataTime(t *testing.T) {
	ts := time.Date(2024, 3, 1, 12, 0, 0, 0, time.UTC)
	data := RecordData{
		"native": ts,
		"rfc":    "2024-03-01T12:00:00Z",
		"junk":   "yesterday",
	}

	if got, ok := data.Time("native"); !ok || !got.Equal(ts) {
		t.Errorf("Time(native) = %v, %v", got, ok)
	}
	if got, ok := data.Time("rfc"); !ok || !got.Equal(ts) {
		t.Errorf("Time(rfc) = %v, %v", got, ok)
	}
	if _, ok := data.Time("junk"); ok {
		t.Error("Time should reject unparseable strings")
	}
}

func TestRecordDataClone(t *testing.T) {
	data := RecordData{"a": 1}
	clone := data.Clone()
	clone["a"] = 2
	clone["b"] = 3

	if v, _ := data.Int64("a"); v != 1 {
		t.Errorf("clone mutated source: a = %d", v)
	}
	if data.Has("b") {
		t.Error("clone mutated source: b present")
	}
}

func TestConsumerTokenOAuth(t *testing.T) {
	expiry := time.Now().Add(time.Hour)
	token := ConsumerToken{AccessToken: "at", RefreshToken: "rt", Expiry: expiry}

	o := token.OAuth()
	if o.AccessToken != "at" || o.RefreshToken != "rt" || !o.Expiry.Equal(expiry) {
		t.Errorf("OAuth() = %+v", o)
	}
}
