package mod

import (
	"testing"

	"github.com/Iron-Ham/moddirector/internal/errors"
)

func TestDescriptor_TargetName(t *testing.T) {
	tests := []struct {
		name string
		d    Descriptor
		want string
	}{
		{"explicit file name", Descriptor{Source: "https://cdn.example.com/a.jar", FileName: "b.jar"}, "b.jar"},
		{"url path", Descriptor{Source: "https://cdn.example.com/mods/jei-1.0.jar"}, "jei-1.0.jar"},
		{"query stripped", Descriptor{Source: "https://cdn.example.com/jei.jar?download=1#top"}, "jei.jar"},
		{"local path", Descriptor{Source: "/srv/mods/optifine.jar"}, "optifine.jar"},
		{"windows path", Descriptor{Source: `C:\mods\sodium.jar`}, "sodium.jar"},
		{"trailing slash", Descriptor{Source: "/srv/mods/pack/"}, "pack"},
		{"empty source", Descriptor{}, ""},
		{"root only", Descriptor{Source: "/"}, ""},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := tt.d.TargetName(); got != tt.want {
				t.Errorf("TargetName() = %q, want %q", got, tt.want)
			}
		})
	}
}

func TestDescriptor_Key(t *testing.T) {
	d := Descriptor{Source: "https://x/jei.jar", Directory: "client"}
	if got := d.Key(); got != "client/jei.jar" {
		t.Errorf("Key() = %q, want %q", got, "client/jei.jar")
	}

	d.Directory = ""
	if got := d.Key(); got != "jei.jar" {
		t.Errorf("Key() = %q, want %q", got, "jei.jar")
	}
}

func TestDescriptor_Validate(t *testing.T) {
	tests := []struct {
		name    string
		d       Descriptor
		wantErr error
	}{
		{
			name: "valid",
			d:    Descriptor{Name: "jei", Source: "https://x/jei.jar", Directory: "client/extra"},
		},
		{
			name:    "missing name",
			d:       Descriptor{Source: "https://x/jei.jar"},
			wantErr: errors.ErrInvalidDescriptor,
		},
		{
			name:    "missing source",
			d:       Descriptor{Name: "jei"},
			wantErr: errors.ErrInvalidDescriptor,
		},
		{
			name:    "file name with separator",
			d:       Descriptor{Name: "jei", Source: "https://x/jei.jar", FileName: "../jei.jar"},
			wantErr: errors.ErrInvalidDescriptor,
		},
		{
			name:    "dot-dot file name",
			d:       Descriptor{Name: "jei", Source: "https://x/jei.jar", FileName: ".."},
			wantErr: errors.ErrInvalidDescriptor,
		},
		{
			name:    "directory escapes",
			d:       Descriptor{Name: "jei", Source: "https://x/jei.jar", Directory: "a/../../etc"},
			wantErr: errors.ErrSandboxViolation,
		},
		{
			name:    "absolute directory",
			d:       Descriptor{Name: "jei", Source: "https://x/jei.jar", Directory: "/etc"},
			wantErr: errors.ErrSandboxViolation,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := tt.d.Validate()
			if tt.wantErr == nil {
				if err != nil {
					t.Fatalf("Validate() unexpected error: %v", err)
				}
				return
			}
			if !errors.Is(err, tt.wantErr) {
				t.Fatalf("Validate() = %v, want %v", err, tt.wantErr)
			}
			var ve *errors.ValidationError
			if !errors.As(err, &ve) {
				t.Errorf("Validate() error should be a ValidationError, got %T", err)
			}
		})
	}
}

func TestSinkFunc(t *testing.T) {
	var got []errors.Record
	var sink ErrorSink = SinkFunc(func(r errors.Record) { got = append(got, r) })

	sink.AddError(errors.NewRecord(errors.SeverityError, "boom", nil))

	if len(got) != 1 || got[0].Message != "boom" {
		t.Errorf("SinkFunc did not forward record: %v", got)
	}
}
