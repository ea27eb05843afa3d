/*
Package filesystem provides filesystem operations on source media with
automatic retry logic for NFS stale file handle errors.

# Purpose

Source images and icons may live on network mounts. os.Stat and os.Open are
wrapped with retry logic for ESTALE (stale file handle) errors, which occur
when NFS-mounted files are accessed during network issues or server-side
changes.

# Usage

	info, err := filesystem.StatWithRetry(path, filesystem.DefaultRetryConfig())

	file, err := filesystem.OpenWithRetry(path, filesystem.DefaultRetryConfig())
	if err != nil {
	    return err
	}
	defer file.Close()

	if !filesystem.Exists(path) {
	    // render the expired tile
	}

# Retry Behavior

Defaults are 3 retries with exponential backoff from 50ms capped at 500ms.
Only ESTALE triggers retries; all other errors fail immediately.

# Metrics

Install an Observer with SetObserver (metrics.NewFilesystemObserver in
production). Without one, nothing is recorded.
*/
package filesystem
