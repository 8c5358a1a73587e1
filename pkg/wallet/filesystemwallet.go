/*
Copyright 2020 IBM All Rights Reserved.

SPDX-License-Identifier: Apache-2.0
*/

package wallet

import (
	"io/ioutil"
	"os"
	"path/filepath"

	"github.com/pkg/errors"
)

const dataFileExtension = ".id"

// FileSystemStore keeps each identity in a "<label>.id" file.
type FileSystemStore struct {
	path string
}

// NewFileSystemWallet creates a wallet backed by files in the directory path,
// creating the directory if needed.
func NewFileSystemWallet(path string) (*Wallet, error) {
	store, err := NewFileSystemStore(path)
	if err != nil {
		return nil, err
	}
	return New(store), nil
}

// NewFileSystemStore returns a store in the directory path.
func NewFileSystemStore(path string) (*FileSystemStore, error) {
	cleanPath := filepath.Clean(path)
	if err := os.MkdirAll(cleanPath, 0700); err != nil {
		return nil, errors.Wrapf(err, "failed to create wallet directory %s", cleanPath)
	}
	return &FileSystemStore{path: cleanPath}, nil
}

func (fs *FileSystemStore) pathname(label string) string {
	return filepath.Clean(filepath.Join(fs.path, label) + dataFileExtension)
}

// Put an identity into the wallet.
func (fs *FileSystemStore) Put(label string, content []byte) error {
	f, err := os.OpenFile(fs.pathname(label), os.O_WRONLY|os.O_CREATE|os.O_TRUNC, 0600)
	if err != nil {
		return errors.Wrapf(err, "failed to open identity file for %s", label)
	}

	if _, err := f.Write(content); err != nil {
		_ = f.Close() // ignore error; Write error takes precedence
		return errors.Wrapf(err, "failed to write identity file for %s", label)
	}

	return f.Close()
}

// Get an identity from the wallet.
func (fs *FileSystemStore) Get(label string) ([]byte, error) {
	content, err := ioutil.ReadFile(fs.pathname(label))
	if os.IsNotExist(err) {
		return nil, notFound(label)
	}
	if err != nil {
		return nil, errors.Wrapf(err, "failed to read identity file for %s", label)
	}
	return content, nil
}

// Remove an identity from the wallet. If the identity does not exist, this method does nothing.
func (fs *FileSystemStore) Remove(label string) error {
	if err := os.Remove(fs.pathname(label)); err != nil && !os.IsNotExist(err) {
		return errors.Wrapf(err, "failed to remove identity file for %s", label)
	}
	return nil
}

// Exists tests the existence of an identity in the wallet.
func (fs *FileSystemStore) Exists(label string) bool {
	_, err := os.Stat(fs.pathname(label))
	return err == nil
}

// List all of the labels in the wallet.
func (fs *FileSystemStore) List() ([]string, error) {
	files, err := ioutil.ReadDir(fs.path)
	if err != nil {
		return nil, errors.Wrap(err, "failed to read wallet directory")
	}

	var labels []string
	for _, file := range files {
		name := file.Name()
		if filepath.Ext(name) == dataFileExtension {
			labels = append(labels, name[:len(name)-len(dataFileExtension)])
		}
	}
	return labels, nil
}
