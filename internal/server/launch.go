package server

import (
	"strings"

	"golang.org/x/sys/unix"

	"github.com/ptyhostd/ptyhostd/internal/fdconn"
	"github.com/ptyhostd/ptyhostd/internal/ptyexec"
	"github.com/ptyhostd/ptyhostd/internal/registry"
	"github.com/ptyhostd/ptyhostd/internal/wire"
)

// handleLaunch forks+execs the requested child and answers with a
// LaunchResponse. A launch failure is reported inline (status=errno,
// no fd) without ever touching the registry; a registry entry is only
// created once the child is actually running.
func (s *Server) handleLaunch(req wire.Launch) error {
	if s.Cfg != nil && s.Cfg.MaxChildren > 0 && s.reg.Len() >= s.Cfg.MaxChildren {
		payload := wire.EncodeLaunchResponse(&wire.LaunchResponse{Status: int32(unix.EAGAIN), Pid: 0})
		return fdconn.SendMessage(s.clientSock, payload)
	}

	envp := s.filterEnv(req.Envp)

	res, err := ptyexec.Launch(ptyexec.Request{
		Path:   req.Path,
		Argv:   req.Argv,
		Envp:   envp,
		Width:  int(req.Width),
		Height: int(req.Height),
		IsUTF8: req.IsUTF8,
		Pwd:    req.Pwd,
	}, s.clientSock, s.limits)
	if err != nil {
		payload := wire.EncodeLaunchResponse(&wire.LaunchResponse{Status: ptyexec.Errno(err), Pid: 0})
		return fdconn.SendMessage(s.clientSock, payload)
	}

	s.reg.Add(registry.Request{
		Path:   req.Path,
		Argv:   req.Argv,
		Envp:   req.Envp,
		IsUTF8: req.IsUTF8,
		Pwd:    req.Pwd,
	}, res.MasterFd, res.DeadmanReadFd, res.Pid)

	payload := wire.EncodeLaunchResponse(&wire.LaunchResponse{Status: 0, Pid: int32(res.Pid)})
	return fdconn.SendMessageWithFD(s.clientSock, payload, res.MasterFd)
}

// filterEnv applies the configured allowlist to a Launch request's envp.
// The child's environment is always entirely replaced by what this
// function returns — never supplemented with the supervisor's own
// environ — so an empty or "*" allowlist (the default) passes envp through
// unchanged; a non-empty, non-"*" allowlist restricts it to the named
// KEY=VALUE pairs.
func (s *Server) filterEnv(envp []string) []string {
	if s.Cfg == nil || len(s.Cfg.Env) == 0 {
		return envp
	}
	for _, name := range s.Cfg.Env {
		if name == "*" {
			return envp
		}
	}
	allowed := make(map[string]bool, len(s.Cfg.Env))
	for _, name := range s.Cfg.Env {
		allowed[name] = true
	}
	filtered := make([]string, 0, len(envp))
	for _, kv := range envp {
		key, _, ok := strings.Cut(kv, "=")
		if ok && allowed[key] {
			filtered = append(filtered, kv)
		}
	}
	return filtered
}
