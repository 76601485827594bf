package servicemgr

import (
	"errors"
	"testing"

	"github.com/kardianos/service"
	"go.uber.org/zap/zaptest"

	"github.com/monsterpi/svcinstall/internal/models"
)

// fakeService records calls made through the kardianos Service interface.
type fakeService struct {
	status    service.Status
	statusErr error
	stopErr   error

	calls []string
}

func (f *fakeService) Run() error                                        { return nil }
func (f *fakeService) Start() error                                      { f.calls = append(f.calls, "start"); return nil }
func (f *fakeService) Stop() error                                       { f.calls = append(f.calls, "stop"); return f.stopErr }
func (f *fakeService) Restart() error                                    { return nil }
func (f *fakeService) Install() error                                    { f.calls = append(f.calls, "install"); return nil }
func (f *fakeService) Uninstall() error                                  { f.calls = append(f.calls, "uninstall"); return nil }
func (f *fakeService) Logger(chan<- error) (service.Logger, error)       { return nil, nil }
func (f *fakeService) SystemLogger(chan<- error) (service.Logger, error) { return nil, nil }
func (f *fakeService) String() string                                    { return "fake" }
func (f *fakeService) Platform() string                                  { return "fake" }
func (f *fakeService) Status() (service.Status, error)                   { return f.status, f.statusErr }

func newTestManager(t *testing.T, svc *fakeService, seen *[]*service.Config) *kardianosManager {
	return &kardianosManager{
		logger: zaptest.NewLogger(t),
		newService: func(cfg *service.Config) (service.Service, error) {
			if seen != nil {
				*seen = append(*seen, cfg)
			}
			return svc, nil
		},
	}
}

func TestStatusMapping(t *testing.T) {
	tests := []struct {
		name      string
		status    service.Status
		statusErr error
		want      models.Status
		wantErr   bool
	}{
		{"not installed", service.StatusUnknown, service.ErrNotInstalled, models.StatusAbsent, false},
		{"stopped", service.StatusStopped, nil, models.StatusInstalled, false},
		{"running", service.StatusRunning, nil, models.StatusRunning, false},
		{"unknown state", service.StatusUnknown, nil, models.StatusInstalled, false},
		{"failed unit", service.StatusUnknown, errors.New("service in failed state"), models.StatusInstalled, false},
		{"query failure", service.StatusUnknown, errors.New("dbus unavailable"), models.StatusAbsent, true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			m := newTestManager(t, &fakeService{status: tt.status, statusErr: tt.statusErr}, nil)
			got, err := m.Status("App")
			if (err != nil) != tt.wantErr {
				t.Fatalf("Status() error = %v, wantErr %v", err, tt.wantErr)
			}
			if got != tt.want {
				t.Errorf("Status() = %v, want %v", got, tt.want)
			}
		})
	}
}

func TestFind(t *testing.T) {
	m := newTestManager(t, &fakeService{statusErr: service.ErrNotInstalled}, nil)
	found, err := m.Find("App")
	if err != nil || found {
		t.Errorf("Find() = %v, %v; want false, nil", found, err)
	}

	m = newTestManager(t, &fakeService{status: service.StatusStopped}, nil)
	found, err = m.Find("App")
	if err != nil || !found {
		t.Errorf("Find() = %v, %v; want true, nil", found, err)
	}

	m = newTestManager(t, &fakeService{statusErr: errors.New("service in failed state")}, nil)
	found, err = m.Find("App")
	if err != nil || !found {
		t.Errorf("Find() on a failed unit = %v, %v; want true, nil", found, err)
	}
}

func TestFind_QueryFailure(t *testing.T) {
	queryErr := errors.New("Failed to connect to bus")
	m := newTestManager(t, &fakeService{statusErr: queryErr}, nil)

	found, err := m.Find("App")
	if !errors.Is(err, queryErr) {
		t.Fatalf("Find() error = %v, want it to wrap %v", err, queryErr)
	}
	if found {
		t.Error("Find() reported a definition it could not query")
	}
}

func TestUninstall_StopsFirstAndIgnoresStopError(t *testing.T) {
	svc := &fakeService{stopErr: errors.New("not running")}
	m := newTestManager(t, svc, nil)

	if err := m.Uninstall("App"); err != nil {
		t.Fatalf("Uninstall() error = %v", err)
	}
	if len(svc.calls) != 2 || svc.calls[0] != "stop" || svc.calls[1] != "uninstall" {
		t.Errorf("calls = %v, want [stop uninstall]", svc.calls)
	}
}

func TestInstall_TranslatesSpec(t *testing.T) {
	var seen []*service.Config
	m := newTestManager(t, &fakeService{}, &seen)

	spec := models.ServiceSpec{
		Name:             "App",
		Description:      "An app",
		ExecutablePath:   "/opt/app/dist/index.js",
		Runtime:          "/usr/bin/node",
		WorkingDirectory: "/opt/app",
		RuntimeOptions:   []string{"--harmony", "--max_old_space_size=4096"},
		Environment:      map[string]string{"DATABASE_PATH": "/var/lib/app-data/database"},
		Restart:          "always",
	}
	if err := m.Install(spec); err != nil {
		t.Fatal(err)
	}
	if len(seen) != 1 {
		t.Fatalf("newService called %d times, want 1", len(seen))
	}
	cfg := seen[0]
	if cfg.Executable != "/usr/bin/node" {
		t.Errorf("Executable = %q", cfg.Executable)
	}
	wantArgs := []string{"--harmony", "--max_old_space_size=4096", "/opt/app/dist/index.js"}
	if len(cfg.Arguments) != len(wantArgs) {
		t.Fatalf("Arguments = %v, want %v", cfg.Arguments, wantArgs)
	}
	for i := range wantArgs {
		if cfg.Arguments[i] != wantArgs[i] {
			t.Errorf("Arguments[%d] = %q, want %q", i, cfg.Arguments[i], wantArgs[i])
		}
	}
	if cfg.DisplayName != "App" {
		t.Errorf("DisplayName = %q, want name fallback", cfg.DisplayName)
	}
	if cfg.WorkingDirectory != "/opt/app" {
		t.Errorf("WorkingDirectory = %q", cfg.WorkingDirectory)
	}
	if cfg.EnvVars["DATABASE_PATH"] != "/var/lib/app-data/database" {
		t.Errorf("EnvVars = %v", cfg.EnvVars)
	}
	if cfg.Option["Restart"] != "always" {
		t.Errorf("Option[Restart] = %v", cfg.Option["Restart"])
	}
}
