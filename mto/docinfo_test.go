package mto

import (
	"reflect"
	"testing"
)

func TestParseDocInfo(t *testing.T) {
	tests := []struct {
		name       string
		text       string
		wantType   string
		wantNumber string
	}{
		{
			"mto with labelled number",
			"MATERIAL TAKE OFF\nDWG NO: ABC-123-456",
			DocTypeMTO,
			"ABC-123-456",
		},
		{
			"bom",
			"BILL OF MATERIAL\nProject X",
			DocTypeBOM,
			"",
		},
		{
			"document number label",
			"MTO SHEET\nDocument No. 42-A1-0007",
			DocTypeMTO,
			"42-A1-0007",
		},
		{
			"project number fallback",
			"BERITA ACARA SERAH TERIMA\nPGAS-MTR-2019-0042",
			DocTypeBeritaAcara,
			"PGAS-MTR-2019-0042",
		},
		{
			"certificate",
			"SERTIFIKAT MATERIAL PIPA",
			DocTypeCertificate,
			"",
		},
		{
			"unknown",
			"general correspondence about schedules",
			DocTypeUnknown,
			"",
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			info := ParseDocInfo(tt.text)
			if info.Type != tt.wantType {
				t.Errorf("type = %q, want %q", info.Type, tt.wantType)
			}
			if info.Number != tt.wantNumber {
				t.Errorf("number = %q, want %q", info.Number, tt.wantNumber)
			}
		})
	}
}

func TestParseDocInfoSizes(t *testing.T) {
	info := ParseDocInfo(`PIPE 4" AND ELBOW 1/2 inch AND TEE 4 in`)
	want := []string{"1/2 Inch", "4 Inch"}
	if !reflect.DeepEqual(info.Sizes, want) {
		t.Errorf("sizes = %v, want %v", info.Sizes, want)
	}
}
