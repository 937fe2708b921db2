package vectordb

import (
	"reflect"
	"testing"
)

func TestSymptomsRoundTrip(t *testing.T) {
	names := []string{"nausea, mild", "headache"}
	enc := EncodeSymptoms(names)
	if got := DecodeSymptoms(enc); !reflect.DeepEqual(got, names) {
		t.Errorf("DecodeSymptoms(%s) = %q", enc, got)
	}
	if enc := EncodeSymptoms(nil); enc != "[]" {
		t.Errorf("EncodeSymptoms(nil) = %s", enc)
	}
	if got := DecodeSymptoms(""); got != nil {
		t.Errorf("DecodeSymptoms(\"\") = %q", got)
	}
	if got := DecodeSymptoms("headache,nausea"); got != nil {
		t.Errorf("malformed value decoded to %q", got)
	}
}
