package random

import "testing"

func TestLetters(t *testing.T) {
	tests := []struct {
		name    string
		length  uint
		wantErr bool
	}{
		{
			name:    "zero length",
			length:  0,
			wantErr: false,
		},
		{
			name:    "32 length",
			length:  32,
			wantErr: false,
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := Letters(tt.length)
			if (err != nil) != tt.wantErr {
				t.Errorf("Letters() error = %v, wantErr %v", err, tt.wantErr)
				return
			}
			if uint(len(got)) != tt.length {
				t.Errorf("Letters() got length = %v, want length %v", len(got), tt.length)
			}
		})
	}
}

func TestPercent(t *testing.T) {
	for i := 0; i < 1000; i++ {
		roll, err := Percent()
		if err != nil {
			t.Fatalf("Percent() error = %v", err)
		}
		if roll < 1 || roll > 100 {
			t.Fatalf("Percent() = %v, want value in [1,100]", roll)
		}
	}
}
