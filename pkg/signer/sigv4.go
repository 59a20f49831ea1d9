/*
Copyright 2026 The OSS FE Proxy Authors.

Licensed under the Apache License, Version 2.0 (the "License");
you may not use this file except in compliance with the License.
You may obtain a copy of the License at

    http://www.apache.org/licenses/LICENSE-2.0

Unless required by applicable law or agreed to in writing, software
distributed under the License is distributed on an "AS IS" BASIS,
WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
See the License for the specific language governing permissions and
limitations under the License.
*/

// Package signer computes AWS Signature Version 4 headers for GET requests
// against an S3-compatible object store.
//
// No SigV4 or AWS SDK library appears anywhere in the example corpus this
// repo is grounded on (see DESIGN.md); the signer is deliberately narrow
// (GET only, always an empty body) and a general-purpose SDK signer would
// pull in far more surface than this contract needs. The narrow contract
// itself comes from spec.md §4.3(5)/§9: the payload hash is always the
// SHA-256 of the empty string, never the literal "UNSIGNED-PAYLOAD", which
// means a request signed here must never carry a body.
package signer

import (
	"crypto/hmac"
	"crypto/sha256"
	"encoding/hex"
	"net/url"
	"sort"
	"strings"
	"time"
)

// emptyPayloadHash is the hex SHA-256 of the empty string.
const emptyPayloadHash = "e3b0c44298fc1c149afbf4c8996fb92427ae41e4649b934ca495991b7852b855"

const (
	algorithm     = "AWS4-HMAC-SHA256"
	terminator    = "aws4_request"
	signedHeaders = "host;x-amz-content-sha256;x-amz-date"
	timeFormat    = "20060102T150405Z"
	dateFormat    = "20060102"
)

// Credentials is the access key pair used to sign a request.
type Credentials struct {
	AccessKeyID     string
	SecretAccessKey string
}

// Request is the minimal description of an outbound GET the signer needs.
// Host and Path are the values that will literally be sent on the wire;
// RawQuery is the undecoded query string (may be empty).
type Request struct {
	Host     string
	Path     string
	RawQuery string
}

// SignGET computes the canonical request, string-to-sign, and Authorization
// header for a GET request at the given time, per spec.md §4.3(5). It
// returns the three headers the caller must set on the outbound request:
// Authorization, X-Amz-Date, and X-Amz-Content-Sha256.
func SignGET(req Request, region string, creds Credentials, now time.Time) (authorization, amzDate, contentSha256 string) {
	amzDate = now.UTC().Format(timeFormat)
	dateStamp := now.UTC().Format(dateFormat)

	canonicalQuery := canonicalQueryString(req.RawQuery)
	canonicalHeaders := "host:" + req.Host + "\n" +
		"x-amz-content-sha256:" + emptyPayloadHash + "\n" +
		"x-amz-date:" + amzDate + "\n"

	canonicalRequest := strings.Join([]string{
		"GET",
		req.Path,
		canonicalQuery,
		canonicalHeaders,
		signedHeaders,
		emptyPayloadHash,
	}, "\n")

	credentialScope := strings.Join([]string{dateStamp, region, "s3", terminator}, "/")
	stringToSign := strings.Join([]string{
		algorithm,
		amzDate,
		credentialScope,
		hashHex(canonicalRequest),
	}, "\n")

	signingKey := deriveSigningKey(creds.SecretAccessKey, dateStamp, region)
	signature := hex.EncodeToString(hmacSHA256(signingKey, stringToSign))

	authorization = algorithm + " " +
		"Credential=" + creds.AccessKeyID + "/" + credentialScope + ", " +
		"SignedHeaders=" + signedHeaders + ", " +
		"Signature=" + signature

	return authorization, amzDate, emptyPayloadHash
}

// canonicalQueryString parses k[=v] pairs, percent-encodes each key and
// value (a space becomes %20), sorts by key lexicographically (then by
// value), and re-joins them k=v with &. Invariant under permutation of the
// input order (spec.md P3).
func canonicalQueryString(rawQuery string) string {
	if rawQuery == "" {
		return ""
	}
	type pair struct{ k, v string }
	var pairs []pair
	for _, p := range strings.Split(rawQuery, "&") {
		if p == "" {
			continue
		}
		k, v, _ := strings.Cut(p, "=")
		pairs = append(pairs, pair{
			k: strings.ReplaceAll(url.QueryEscape(k), "+", "%20"),
			v: strings.ReplaceAll(url.QueryEscape(v), "+", "%20"),
		})
	}
	sort.Slice(pairs, func(i, j int) bool {
		if pairs[i].k != pairs[j].k {
			return pairs[i].k < pairs[j].k
		}
		return pairs[i].v < pairs[j].v
	})
	kvs := make([]string, len(pairs))
	for i, p := range pairs {
		kvs[i] = p.k + "=" + p.v
	}
	return strings.Join(kvs, "&")
}

func deriveSigningKey(secretAccessKey, dateStamp, region string) []byte {
	kDate := hmacSHA256([]byte("AWS4"+secretAccessKey), dateStamp)
	kRegion := hmacSHA256(kDate, region)
	kService := hmacSHA256(kRegion, "s3")
	return hmacSHA256(kService, terminator)
}

func hmacSHA256(key []byte, data string) []byte {
	h := hmac.New(sha256.New, key)
	h.Write([]byte(data))
	return h.Sum(nil)
}

func hashHex(data string) string {
	sum := sha256.Sum256([]byte(data))
	return hex.EncodeToString(sum[:])
}
