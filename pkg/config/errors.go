// SPDX-FileCopyrightText: 2025 Deutsche Telekom IT GmbH
//
// SPDX-License-Identifier: Apache-2.0

package config

import "errors"

var (
	// ErrInvalidLoaderType is returned when the snapshot loader type is unknown
	ErrInvalidLoaderType = errors.New("invalid loader type")
	// ErrInvalidLoaderHttpURL is returned when the loader http url is invalid
	ErrInvalidLoaderHttpURL = errors.New("invalid loader http url")
	// ErrInvalidLoaderHttpRetryCount is returned when the loader http retry count is invalid
	ErrInvalidLoaderHttpRetryCount = errors.New("invalid loader http retry count")
	// ErrInvalidLoaderFilePath is returned when the loader file path is invalid
	ErrInvalidLoaderFilePath = errors.New("invalid loader file path")
	// ErrInvalidFlowsPath is returned when no flow specification file is set
	ErrInvalidFlowsPath = errors.New("invalid flows path")
	// ErrInvalidParallelism is returned when the exploration parallelism is negative
	ErrInvalidParallelism = errors.New("invalid exploration parallelism")
	// ErrInvalidCompression is returned when compression is requested for a text format
	ErrInvalidCompression = errors.New("compression is only supported for json output")
)
