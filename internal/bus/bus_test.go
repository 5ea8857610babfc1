package bus

import (
	"bufio"
	"fmt"
	"net"
	"os"
	"path/filepath"
	"strconv"
	"testing"
	"time"
)

func TestPidManagerBasics(t *testing.T) {
	tempDir := t.TempDir()
	testPidManager := &pidManager{
		path: filepath.Join(tempDir, "run", PidName),
	}

	t.Run("create and remove PID file", func(t *testing.T) {
		if err := testPidManager.create(); err != nil {
			t.Fatalf("create failed: %v", err)
		}

		pidData, err := os.ReadFile(testPidManager.path)
		if err != nil {
			t.Fatalf("failed to read PID file: %v", err)
		}
		if expectedPid := strconv.Itoa(os.Getpid()); string(pidData) != expectedPid {
			t.Errorf("PID file contains %q, expected %q", string(pidData), expectedPid)
		}

		if err := testPidManager.remove(); err != nil {
			t.Fatalf("remove failed: %v", err)
		}
		if _, err := os.Stat(testPidManager.path); !os.IsNotExist(err) {
			t.Error("PID file should not exist after removal")
		}
	})

	t.Run("checkExisting with no PID file", func(t *testing.T) {
		if err := testPidManager.checkExisting(); err != nil {
			t.Errorf("checkExisting should not error when no PID file exists: %v", err)
		}
	})

	t.Run("checkExisting with current process", func(t *testing.T) {
		if err := testPidManager.create(); err != nil {
			t.Fatalf("create failed: %v", err)
		}
		defer testPidManager.remove()

		if err := testPidManager.checkExisting(); err == nil {
			t.Error("checkExisting should fail when process is running")
		}
	})

	for name, content := range map[string]string{"stale": "99999", "invalid": "invalid"} {
		t.Run("checkExisting with "+name+" PID file", func(t *testing.T) {
			if err := os.WriteFile(testPidManager.path, []byte(content), 0o600); err != nil {
				t.Fatalf("failed to write PID file: %v", err)
			}
			if err := testPidManager.checkExisting(); err != nil {
				t.Errorf("checkExisting should succeed: %v", err)
			}
			if _, err := os.Stat(testPidManager.path); !os.IsNotExist(err) {
				t.Errorf("%s PID file should be removed", name)
			}
		})
	}
}

func TestIsProcessAlive(t *testing.T) {
	pm := &pidManager{}

	if !pm.isProcessAlive(os.Getpid()) {
		t.Error("current process should be alive")
	}
	if pm.isProcessAlive(99999) {
		t.Error("non-existent process should not be alive")
	}
	if pm.isProcessAlive(0) || pm.isProcessAlive(-1) {
		t.Error("non-positive PIDs should not be alive")
	}
}

func TestSocketManagerBasics(t *testing.T) {
	testSocketManager := &socketManager{
		path: filepath.Join(t.TempDir(), SockName),
	}

	t.Run("listen and dial", func(t *testing.T) {
		listener, err := testSocketManager.listen()
		if err != nil {
			t.Fatalf("listen failed: %v", err)
		}
		defer listener.Close()

		connCh := make(chan error, 1)
		go func() {
			conn, err := listener.Accept()
			if err != nil {
				connCh <- err
				return
			}
			defer conn.Close()

			buf := make([]byte, 1024)
			n, err := conn.Read(buf)
			if err != nil {
				connCh <- err
				return
			}
			_, err = conn.Write(buf[:n])
			connCh <- err
		}()

		conn, err := testSocketManager.dial()
		if err != nil {
			t.Fatalf("dial failed: %v", err)
		}
		defer conn.Close()

		testMsg := "hello"
		if _, err := conn.Write([]byte(testMsg)); err != nil {
			t.Fatalf("write failed: %v", err)
		}

		buf := make([]byte, 1024)
		n, err := conn.Read(buf)
		if err != nil {
			t.Fatalf("read failed: %v", err)
		}
		if string(buf[:n]) != testMsg {
			t.Errorf("got %q, expected %q", string(buf[:n]), testMsg)
		}
		if err := <-connCh; err != nil {
			t.Errorf("background connection error: %v", err)
		}
	})

	t.Run("listen replaces stale socket", func(t *testing.T) {
		if err := os.WriteFile(testSocketManager.path, nil, 0o600); err != nil {
			t.Fatal(err)
		}
		listener, err := testSocketManager.listen()
		if err != nil {
			t.Fatalf("listen over stale socket failed: %v", err)
		}
		listener.Close()
	})

	t.Run("dial without listener", func(t *testing.T) {
		if _, err := testSocketManager.dial(); err == nil {
			t.Error("dial should fail when no listener exists")
		}
	})
}

func serveMock(t *testing.T, s *socketManager, handle func(cmd byte) string) {
	t.Helper()
	listener, err := s.listen()
	if err != nil {
		t.Fatalf("listen failed: %v", err)
	}
	t.Cleanup(func() { listener.Close() })

	go func() {
		for {
			conn, err := listener.Accept()
			if err != nil {
				return
			}
			go func(c net.Conn) {
				defer c.Close()
				line, err := bufio.NewReader(c).ReadString('\n')
				if err != nil || len(line) != 2 {
					return
				}
				if reply := handle(line[0]); reply != "" {
					fmt.Fprint(c, reply)
				}
			}(conn)
		}
	}()
}

func TestSendCommand(t *testing.T) {
	s := &socketManager{path: filepath.Join(t.TempDir(), SockName)}
	serveMock(t, s, func(cmd byte) string {
		switch cmd {
		case CmdToggle:
			return "OK recording=true\n"
		case CmdStatus:
			return "STATUS state=idle\n"
		case CmdVersion:
			return fmt.Sprintf("STATUS proto=%s\n", ProtoVer)
		case CmdQuit:
			return "OK quitting\n"
		default:
			return fmt.Sprintf("ERR unknown=%q\n", cmd)
		}
	})

	tests := []struct {
		cmd      byte
		expected string
	}{
		{CmdToggle, "OK recording=true\n"},
		{CmdStatus, "STATUS state=idle\n"},
		{CmdVersion, fmt.Sprintf("STATUS proto=%s\n", ProtoVer)},
		{CmdQuit, "OK quitting\n"},
		{'x', "ERR unknown='x'\n"},
	}

	for _, tt := range tests {
		resp, err := s.send(tt.cmd)
		if err != nil {
			t.Errorf("command %c: %v", tt.cmd, err)
			continue
		}
		if resp != tt.expected {
			t.Errorf("command %c: got %q, expected %q", tt.cmd, resp, tt.expected)
		}
	}
}

func TestSendCommandReplyTimeout(t *testing.T) {
	orig := replyTimeout
	replyTimeout = 50 * time.Millisecond
	defer func() { replyTimeout = orig }()

	s := &socketManager{path: filepath.Join(t.TempDir(), SockName)}
	block := make(chan struct{})
	defer close(block)
	serveMock(t, s, func(byte) string {
		<-block
		return ""
	})

	if _, err := s.send(CmdStatus); err == nil {
		t.Error("send should time out when the daemon does not reply")
	}
}

func TestPathFunctions(t *testing.T) {
	cacheDir := t.TempDir()
	t.Setenv("XDG_CACHE_HOME", cacheDir)

	sock, err := SockPath()
	if err != nil {
		t.Fatalf("SockPath failed: %v", err)
	}
	if want := filepath.Join(cacheDir, "decibel", SockName); sock != want {
		t.Errorf("SockPath() = %s, want %s", sock, want)
	}

	pid, err := getPidPath()
	if err != nil {
		t.Fatalf("getPidPath failed: %v", err)
	}
	if want := filepath.Join(cacheDir, "decibel", PidName); pid != want {
		t.Errorf("getPidPath() = %s, want %s", pid, want)
	}
}

func TestPublicAPIWithTempDirs(t *testing.T) {
	t.Setenv("XDG_CACHE_HOME", t.TempDir())

	if err := CheckExistingDaemon(); err != nil {
		t.Errorf("CheckExistingDaemon should succeed when no daemon running: %v", err)
	}

	if err := CreatePidFile(); err != nil {
		t.Fatalf("CreatePidFile failed: %v", err)
	}
	if err := CheckExistingDaemon(); err == nil {
		t.Error("CheckExistingDaemon should fail while this process holds the PID file")
	}
	if err := RemovePidFile(); err != nil {
		t.Fatalf("RemovePidFile failed: %v", err)
	}

	ln, err := Listen()
	if err != nil {
		t.Fatalf("Listen failed: %v", err)
	}
	go func() {
		c, err := ln.Accept()
		if err != nil {
			return
		}
		defer c.Close()
		bufio.NewReader(c).ReadString('\n')
		fmt.Fprint(c, "OK\n")
	}()
	defer ln.Close()

	if resp, err := SendCommand(CmdStatus); err != nil || resp != "OK\n" {
		t.Errorf("SendCommand() = %q, %v", resp, err)
	}
}
