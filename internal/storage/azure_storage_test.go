package storage

import "testing"

func TestParseBlobRef(t *testing.T) {
	tests := []struct {
		ref           string
		wantContainer string
		wantBlob      string
		wantErr       bool
	}{
		{ref: "azblob://screens/army.png", wantContainer: "screens", wantBlob: "army.png"},
		{ref: "azblob://screens/2024/05/base.jpg", wantContainer: "screens", wantBlob: "2024/05/base.jpg"},
		{ref: "azblob://screens/", wantErr: true},
		{ref: "azblob:///army.png", wantErr: true},
		{ref: "https://screens/army.png", wantErr: true},
		{ref: "::", wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.ref, func(t *testing.T) {
			container, blob, err := ParseBlobRef(tt.ref)
			if tt.wantErr {
				if err == nil {
					t.Errorf("Expected error for %q", tt.ref)
				}
				return
			}
			if err != nil {
				t.Fatalf("Unexpected error: %v", err)
			}
			if container != tt.wantContainer || blob != tt.wantBlob {
				t.Errorf("Got (%q, %q), want (%q, %q)", container, blob, tt.wantContainer, tt.wantBlob)
			}
		})
	}
}
