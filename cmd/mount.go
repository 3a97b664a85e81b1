// Copyright 2024 Google LLC
//
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at
//
//     http://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.

package cmd

import (
	"fmt"
	"os"
	"os/signal"

	"github.com/googlecloudplatform/libfusego/cfg"
	"github.com/googlecloudplatform/libfusego/fuse"
	"github.com/googlecloudplatform/libfusego/internal/hellofs"
	"github.com/googlecloudplatform/libfusego/internal/logger"
	"github.com/googlecloudplatform/libfusego/internal/mount"
	"github.com/googlecloudplatform/libfusego/internal/util"
	"github.com/jacobsa/daemonize"
	"github.com/kardianos/osext"
	"golang.org/x/sys/unix"
)

const (
	SuccessfulMountMessage         = "File system has been successfully mounted."
	UnsuccessfulMountMessagePrefix = "Error while mounting hellofs"
)

////////////////////////////////////////////////////////////////////////
// Helpers
////////////////////////////////////////////////////////////////////////

func registerTerminatingSignalHandler(driver *fuse.Driver[cfg.Config]) {
	// Register for SIGINT and SIGTERM.
	signalChan := make(chan os.Signal, 1)
	signal.Notify(signalChan, os.Interrupt, unix.SIGTERM)

	// Start a goroutine that will unmount when a signal is received. The
	// dispatch loop notices the dead mount and returns, after which the main
	// flow finalizes the driver.
	go func() {
		sig := <-signalChan
		sigName := "undefined"
		switch sig {
		case unix.SIGTERM:
			sigName = "SIGTERM"
		case os.Interrupt:
			sigName = "SIGINT"
		}
		logger.Infof("Received %s, attempting to unmount...", sigName)

		driver.Unmount()
		logger.Infof("Successfully unmounted in response to %s.", sigName)
	}()
}

// daemonizeAndWait re-runs the current executable with --foreground in a
// detached daemon process and blocks until the child reports the mount
// outcome through package daemonize's status channel.
func daemonizeAndWait(newConfig *cfg.Config, mountPoint string) error {
	// Find the executable.
	path, err := osext.Executable()
	if err != nil {
		return fmt.Errorf("osext.Executable: %w", err)
	}

	// Set up arguments. Be sure to use foreground mode, and to send along the
	// resolved mount point.
	args := append([]string{"--foreground"}, os.Args[1:]...)
	args[len(args)-1] = mountPoint

	// Pass along PATH so that the daemon can find fusermount3 on Linux.
	env := []string{
		fmt.Sprintf("PATH=%s", os.Getenv("PATH")),
	}

	// Pass the parent process working directory to the child process via
	// environment variable. This variable will be used to resolve relative
	// paths.
	if parentProcessExecutionDir, err := os.Getwd(); err == nil {
		env = append(env, fmt.Sprintf("%s=%s", util.LIBFUSEGO_PARENT_PROCESS_DIR,
			parentProcessExecutionDir))
	}

	// The parent process doesn't pass $HOME to the child process implicitly,
	// hence we need to pass it explicitly.
	if homeDir, err := os.UserHomeDir(); err == nil {
		env = append(env, fmt.Sprintf("HOME=%s", homeDir))
	}

	// This environment variable distinguishes the main process from the
	// daemon process.
	env = append(env, fmt.Sprintf("%s=true", logger.HellofsInBackgroundMode))

	// logfile.stderr will capture the standard error (stderr) output of the
	// hellofs background process.
	var stderrFile *os.File
	if newConfig.Logging.FilePath != "" {
		stderrFileName := string(newConfig.Logging.FilePath) + ".stderr"
		if stderrFile, err = os.OpenFile(stderrFileName, os.O_WRONLY|os.O_CREATE|os.O_APPEND, 0644); err != nil {
			return err
		}
	}

	// Run.
	if err := daemonize.Run(path, args, env, os.Stdout, stderrFile); err != nil {
		return fmt.Errorf("daemonize.Run: %w", err)
	}
	logger.Infof(SuccessfulMountMessage)
	return nil
}

////////////////////////////////////////////////////////////////////////
// Mount
////////////////////////////////////////////////////////////////////////

// Mount either daemonizes and waits for the child to mount, or (with
// --foreground, which is also what the child runs with) mounts the hello
// filesystem and serves it until it is unmounted or interrupted.
func Mount(newConfig *cfg.Config, mountPoint string) (err error) {
	if mountPoint, err = util.GetResolvedPath(mountPoint); err != nil {
		return fmt.Errorf("resolve mount point: %w", err)
	}

	// If we haven't been asked to run in foreground mode, we should run a
	// daemon with the foreground flag set and wait for it to mount.
	if !newConfig.Foreground {
		return daemonizeAndWait(newConfig, mountPoint)
	}

	if newConfig.Logging.FilePath != "" || os.Getenv(logger.HellofsInBackgroundMode) == "true" {
		if err := logger.InitLogFile(newConfig.Logging); err != nil {
			return fmt.Errorf("init log file: %w", err)
		}
		defer logger.Close()
	}

	// Log the resolved config, but only when it does not end up duplicated
	// into a log file the user already reads.
	if newConfig.Logging.FilePath == "" {
		if str, err := util.YAMLStringify(newConfig); err == nil {
			logger.Infof("hellofs config:\n%s", str)
		}
	}

	return serve(newConfig, mountPoint)
}

// serve owns the driver lifecycle: construct, mount, dispatch, tear down.
func serve(newConfig *cfg.Config, mountPoint string) error {
	args, err := fuse.FromSequence(mount.FuseTokens(
		logger.ProgrammeName,
		newConfig.FileSystem.FuseOptions,
		newConfig.Debug.Fuse,
	))
	if err != nil {
		return fmt.Errorf("building fuse arguments: %w", err)
	}
	defer args.Close()

	driver := fuse.New(args, hellofs.NewOperations(newConfig), newConfig)
	if driver == nil {
		err := fmt.Errorf("the fuse library rejected the arguments or the callback table")
		logger.Errorf("%s: %v\n", UnsuccessfulMountMessagePrefix, err)
		callDaemonizeSignalOutcome(err)
		return err
	}
	defer driver.Finalize()

	// Mount, telling the writer that package daemonize gives us about the
	// outcome so a waiting parent process can return.
	if err := driver.Mount(mountPoint); err != nil {
		// Printing this here will duplicate logs on the console in foreground
		// mode, but it is important to avoid losing error logs when run in
		// the background mode.
		logger.Errorf("%s: %v\n", UnsuccessfulMountMessagePrefix, err)
		err = fmt.Errorf("%s: %w", UnsuccessfulMountMessagePrefix, err)
		callDaemonizeSignalOutcome(err)
		return err
	}
	logger.Infof(SuccessfulMountMessage)
	callDaemonizeSignalOutcome(nil)

	// Let the user unmount with Ctrl-C (SIGINT) or SIGTERM.
	registerTerminatingSignalHandler(driver)

	// Serve requests until the mount goes away.
	if err := driver.LoopSingle(); err != nil {
		return fmt.Errorf("fuse dispatch loop: %w", err)
	}
	driver.Unmount()
	return nil
}

// callDaemonizeSignalOutcome absorbs the error returned by
// daemonize.SignalOutcome by simply logging it.
func callDaemonizeSignalOutcome(outcome error) {
	if err := daemonize.SignalOutcome(outcome); err != nil {
		logger.Errorf("Failed to signal outcome to parent-process from daemon: %v", err)
	}
}
