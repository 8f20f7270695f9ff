package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"time"

	"github.com/muesli/coral"
	"go.uber.org/zap"

	"github.com/fairDataSociety/fairdrive-opfs/internal/logging"
	"github.com/fairDataSociety/fairdrive-opfs/pkg/driver"
	"github.com/fairDataSociety/fairdrive-opfs/pkg/handle"
	"github.com/fairDataSociety/fairdrive-opfs/pkg/transfer"
)

var lsCmd = &coral.Command{
	Use:   "ls MOUNT [PATH]",
	Short: "list a directory",
	Args:  coral.RangeArgs(1, 2),
	RunE: func(cmd *coral.Command, args []string) error {
		ctx, cancel := commandContext(cmd)
		defer cancel()
		dir := ""
		if len(args) == 2 {
			dir = args[1]
		}
		return runLs(ctx, args[0], dir, os.Stdout)
	},
}

var catCmd = &coral.Command{
	Use:   "cat MOUNT FILE",
	Short: "print a file to stdout",
	Args:  coral.ExactArgs(2),
	RunE: func(cmd *coral.Command, args []string) error {
		ctx, cancel := commandContext(cmd)
		defer cancel()
		return runCat(ctx, args[0], args[1], os.Stdout)
	},
}

var putFlags = struct {
	dir string
}{}

var putCmd = &coral.Command{
	Use:   "put MOUNT LOCALFILE",
	Short: "upload a local file",
	Long:  "upload a local file without overwriting, reporting transfer events as they happen",
	Args:  coral.ExactArgs(2),
	RunE: func(cmd *coral.Command, args []string) error {
		ctx, cancel := commandContext(cmd)
		defer cancel()
		return runPut(ctx, args[0], args[1])
	},
}

var writeCmd = &coral.Command{
	Use:   "write MOUNT NAME [LOCALFILE]",
	Short: "write a file, replacing any existing content",
	Long:  "write LOCALFILE (or stdin when omitted or \"-\") to NAME through a writable file handle",
	Args:  coral.RangeArgs(2, 3),
	RunE: func(cmd *coral.Command, args []string) error {
		ctx, cancel := commandContext(cmd)
		defer cancel()
		src := "-"
		if len(args) == 3 {
			src = args[2]
		}
		return runWrite(ctx, args[0], args[1], src)
	},
}

var mkdirCmd = &coral.Command{
	Use:   "mkdir MOUNT NAME",
	Short: "create a directory",
	Args:  coral.ExactArgs(2),
	RunE: func(cmd *coral.Command, args []string) error {
		ctx, cancel := commandContext(cmd)
		defer cancel()
		return runMkdir(ctx, args[0], args[1])
	},
}

var rmCmd = &coral.Command{
	Use:   "rm MOUNT NAME",
	Short: "remove a file",
	Args:  coral.ExactArgs(2),
	RunE: func(cmd *coral.Command, args []string) error {
		ctx, cancel := commandContext(cmd)
		defer cancel()
		return runRm(ctx, args[0], args[1])
	},
}

func init() {
	rootCmd.AddCommand(lsCmd, catCmd, putCmd, writeCmd, mkdirCmd, rmCmd)
	putCmd.Flags().StringVarP(&putFlags.dir, "dir", "d", "/", "destination directory inside the mount")
}

func runLs(ctx context.Context, mount, dir string, w io.Writer) error {
	p, err := selectedProvider(ctx)
	if err != nil {
		return err
	}
	folder := folderAt(ctx, p, mount, dir)
	for entry, err := range folder.Entries(ctx) {
		if err != nil {
			return err
		}
		printEntry(w, entry.Handle.Kind() == handle.KindDirectory, entry.Name)
	}
	return nil
}

func runCat(ctx context.Context, mount, name string, w io.Writer) error {
	p, err := selectedProvider(ctx)
	if err != nil {
		return err
	}
	dir, leaf := splitRemote(name)
	f, err := folderAt(ctx, p, mount, dir).GetFileHandle(leaf, handle.GetFileOptions{}).GetFile(ctx)
	if err != nil {
		return fmt.Errorf("%s: %w", name, err)
	}
	_, err = w.Write(f.Data)
	return err
}

func runPut(ctx context.Context, mount, local string) error {
	p, err := selectedProvider(ctx)
	if err != nil {
		return err
	}
	data, err := os.ReadFile(local)
	if err != nil {
		return err
	}
	file := driver.NewFile(filepath.Base(local), data)

	xfer := p.Transfer()
	var failure error
	started := xfer.OnStart().Subscribe(func(e transfer.StartEvent) {
		logging.Info("upload started",
			logging.Mount(e.Mount.Name, e.Mount.Path),
			zap.String("file", e.File.Name),
			zap.String("size", byteSize(e.File.Size())))
	})
	defer started.Unsubscribe()
	failed := xfer.OnError().Subscribe(func(err error) { failure = err })
	defer failed.Unsubscribe()
	completed := xfer.OnComplete().Subscribe(func(e transfer.CompleteEvent) {
		if failure != nil {
			return
		}
		fmt.Fprintf(os.Stdout, "%s\t%s\t%s\n", e.Result.Path, byteSize(e.Result.Size), e.Duration.Round(time.Millisecond))
	})
	defer completed.Unsubscribe()

	xfer.Transfer(ctx, file, driver.Mount{Name: mount, Path: filepath.ToSlash(putFlags.dir)})
	if errors.Is(failure, driver.ErrExist) {
		return fmt.Errorf("%s already exists; use write to replace it", file.Name)
	}
	return failure
}

func runWrite(ctx context.Context, mount, name, src string) error {
	p, err := selectedProvider(ctx)
	if err != nil {
		return err
	}

	var data []byte
	if src == "-" {
		data, err = io.ReadAll(os.Stdin)
	} else {
		data, err = os.ReadFile(src)
	}
	if err != nil {
		return err
	}

	dir, leaf := splitRemote(name)
	sink, err := folderAt(ctx, p, mount, dir).
		GetFileHandle(leaf, handle.GetFileOptions{Create: true}).
		CreateWritable(ctx, handle.CreateWritableOptions{})
	if err != nil {
		return err
	}
	if err := sink.Write(data); err != nil {
		return err
	}
	return sink.Close(ctx)
}

func runMkdir(ctx context.Context, mount, name string) error {
	p, err := selectedProvider(ctx)
	if err != nil {
		return err
	}
	dir, leaf := splitRemote(name)
	_, err = folderAt(ctx, p, mount, dir).GetDirectoryHandle(ctx, leaf, handle.GetDirectoryOptions{Create: true})
	return err
}

func runRm(ctx context.Context, mount, name string) error {
	p, err := selectedProvider(ctx)
	if err != nil {
		return err
	}
	dir, leaf := splitRemote(name)
	if err := folderAt(ctx, p, mount, dir).RemoveEntry(ctx, leaf, handle.RemoveOptions{}); err != nil {
		return fmt.Errorf("%s: %w", name, err)
	}
	return nil
}
