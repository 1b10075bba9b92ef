//go:build linux
// +build linux

// Copyright (c) 2025 Stefano Scafiti
//
// Permission is hereby granted, free of charge, to any person obtaining a copy
// of this software and associated documentation files (the "Software"), to deal
// in the Software without restriction, including without limitation the rights
// to use, copy, modify, merge, publish, distribute, sublicense, and/or sell
// copies of the Software, and to permit persons to whom the Software is
// furnished to do so, subject to the following conditions:
//
// The above copyright notice and this permission notice shall be included in
// all copies or substantial portions of the Software.
//
// THE SOFTWARE IS PROVIDED "AS IS", WITHOUT WARRANTY OF ANY KIND, EXPRESS OR
// IMPLIED, INCLUDING BUT NOT LIMITED TO THE WARRANTIES OF MERCHANTABILITY,
// FITNESS FOR A PARTICULAR PURPOSE AND NONINFRINGEMENT. IN NO EVENT SHALL THE
// AUTHORS OR COPYRIGHT HOLDERS BE LIABLE FOR ANY CLAIM, DAMAGES OR OTHER
// LIABILITY, WHETHER IN AN ACTION OF CONTRACT, TORT OR OTHERWISE, ARISING FROM,
// OUT OF OR IN CONNECTION WITH THE SOFTWARE OR THE USE OR OTHER DEALINGS IN
// THE SOFTWARE.
package vfatfuse

import (
	"log"
	"os"
	"os/signal"
	"syscall"

	"bazil.org/fuse"
	fusefs "bazil.org/fuse/fs"

	"github.com/ostafen/gofatfs/pkg/fat"
	utilos "github.com/ostafen/gofatfs/pkg/util/os"
)

// Mount serves vol at mountpoint until a termination signal is received and
// the filesystem unmounts cleanly.
func Mount(mountpoint string, vol *fat.Volume) error {
	created, err := prepareMountpoint(mountpoint)
	if err != nil {
		return err
	}
	if created {
		defer os.Remove(mountpoint)
	}

	c, err := fuse.Mount(mountpoint, fuse.FSName("gofatfs"), fuse.Subtype("fatfs"))
	if err != nil {
		return err
	}
	defer c.Close()

	root := New(vol)
	go func() {
		srv := fusefs.New(c, nil)
		if err := srv.Serve(root); err != nil {
			log.Fatalf("serve error: %v", err)
		}
	}()
	return waitForUnmount(mountpoint)
}

func waitForUnmount(mountpoint string) error {
	sigc := make(chan os.Signal, 1)
	signal.Notify(sigc, os.Interrupt, syscall.SIGTERM)

	log.Println("waiting for termination signal...")

	const maxUnmountRetries = 3
	attempts := 0
	for sig := range sigc {
		log.Printf("signal received: %v", sig)
		if attempts >= maxUnmountRetries {
			log.Fatalf("maximum unmount retries (%d) exceeded for %s, exiting forcefully", maxUnmountRetries, mountpoint)
		}
		attempts++
		if err := fuse.Unmount(mountpoint); err == nil {
			log.Println("unmounted successfully")
			return nil
		} else {
			log.Printf("unmount failed: %v, waiting for another signal", err)
		}
	}
	return nil
}

func prepareMountpoint(mountpoint string) (bool, error) {
	return utilos.EnsureDir(mountpoint, true)
}
