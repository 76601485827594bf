package installer

import (
	"errors"

	"github.com/monsterpi/svcinstall/internal/models"
)

// fakeManager is an in-memory service manager that records every call.
type fakeManager struct {
	defs    map[string]models.ServiceSpec
	running map[string]bool

	findErr      error
	installErr   error
	uninstallErr error
	startErr     error
	statusErr    error

	// uninstallRemoves controls whether a failing Uninstall still removes the definition.
	uninstallRemoves bool
	// startSilentlyFails leaves the service stopped without reporting an error.
	startSilentlyFails bool

	calls []string
}

func newFakeManager() *fakeManager {
	return &fakeManager{
		defs:    make(map[string]models.ServiceSpec),
		running: make(map[string]bool),
	}
}

func (f *fakeManager) Platform() string { return "fake" }

func (f *fakeManager) Find(name string) (bool, error) {
	f.calls = append(f.calls, "find")
	if f.findErr != nil {
		return false, f.findErr
	}
	_, ok := f.defs[name]
	return ok, nil
}

func (f *fakeManager) Install(spec models.ServiceSpec) error {
	f.calls = append(f.calls, "install")
	if f.installErr != nil {
		return f.installErr
	}
	if _, ok := f.defs[spec.Name]; ok {
		return errors.New("already exists")
	}
	f.defs[spec.Name] = spec
	return nil
}

func (f *fakeManager) Uninstall(name string) error {
	f.calls = append(f.calls, "uninstall")
	if f.uninstallErr != nil {
		if f.uninstallRemoves {
			delete(f.defs, name)
			delete(f.running, name)
		}
		return f.uninstallErr
	}
	if _, ok := f.defs[name]; !ok {
		return errors.New("not installed")
	}
	delete(f.defs, name)
	delete(f.running, name)
	return nil
}

func (f *fakeManager) Start(name string) error {
	f.calls = append(f.calls, "start")
	if f.startErr != nil {
		return f.startErr
	}
	if _, ok := f.defs[name]; !ok {
		return errors.New("not installed")
	}
	if !f.startSilentlyFails {
		f.running[name] = true
	}
	return nil
}

func (f *fakeManager) Status(name string) (models.Status, error) {
	f.calls = append(f.calls, "status")
	if f.statusErr != nil {
		return models.StatusAbsent, f.statusErr
	}
	if _, ok := f.defs[name]; !ok {
		return models.StatusAbsent, nil
	}
	if f.running[name] {
		return models.StatusRunning, nil
	}
	return models.StatusInstalled, nil
}

func (f *fakeManager) called(op string) int {
	n := 0
	for _, c := range f.calls {
		if c == op {
			n++
		}
	}
	return n
}
