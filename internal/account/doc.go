// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 IFA Contributors

// Package account implements the account and credential service: password
// hashing, credential validation, case-insensitive account lookup, and the
// account lifecycle (register, authenticate, change password, update profile,
// delete).
//
// Persistence is delegated to a Store. The package ships no Store of its own;
// see the memory and postgres subpackages.
package account
