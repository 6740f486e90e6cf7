package startup

import (
	"testing"
)

func TestParseShares(t *testing.T) {
	tests := []struct {
		name    string
		spec    string
		want    map[string]string
		wantErr bool
	}{
		{
			name: "single share",
			spec: "media=/srv/media",
			want: map[string]string{"media": "/srv/media"},
		},
		{
			name: "multiple shares",
			spec: "media=/srv/media,tv=/srv/tv",
			want: map[string]string{"media": "/srv/media", "tv": "/srv/tv"},
		},
		{
			name: "whitespace tolerated",
			spec: " media = /srv/media , tv = /srv/tv ",
			want: map[string]string{"media": "/srv/media", "tv": "/srv/tv"},
		},
		{
			name: "empty spec",
			spec: "",
			want: map[string]string{},
		},
		{
			name: "trailing comma",
			spec: "media=/srv/media,",
			want: map[string]string{"media": "/srv/media"},
		},
		{
			name:    "missing path",
			spec:    "media=",
			wantErr: true,
		},
		{
			name:    "missing separator",
			spec:    "media",
			wantErr: true,
		},
		{
			name:    "duplicate name",
			spec:    "media=/a,media=/b",
			wantErr: true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := ParseShares(tt.spec)
			if tt.wantErr {
				if err == nil {
					t.Fatalf("ParseShares(%q) expected error, got %v", tt.spec, got)
				}
				return
			}
			if err != nil {
				t.Fatalf("ParseShares(%q) unexpected error: %v", tt.spec, err)
			}
			if len(got) != len(tt.want) {
				t.Fatalf("ParseShares(%q) = %v, want %v", tt.spec, got, tt.want)
			}
			for name, root := range tt.want {
				if got[name] != root {
					t.Errorf("ParseShares(%q)[%q] = %q, want %q", tt.spec, name, got[name], root)
				}
			}
		})
	}
}

func TestGetBuildInfo(t *testing.T) {
	info := GetBuildInfo()
	if info.Version == "" || info.GoVersion == "" || info.OS == "" || info.Arch == "" {
		t.Errorf("GetBuildInfo returned incomplete info: %+v", info)
	}
}
