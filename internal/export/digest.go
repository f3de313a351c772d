/*
 * Copyright (c) 2025 by Alexander Drost, Oldenburg, Germany.
 * This file is licensed to you under the Apache License, Version 2.0 (the "License"); you may not use this file except in compliance with the License.  You may obtain a copy of the License at
 *   http://www.apache.org/licenses/LICENSE-2.0
 * Unless required by applicable law or agreed to in writing, software distributed under the License is distributed on an
 * "AS IS" BASIS, WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.  See the License for the specific language governing permissions and limitations under the License.
 */

package export

import (
	"encoding/binary"
	"encoding/hex"
	"image"

	"github.com/minio/highwayhash"
)

// digestKey is fixed so digests compare across runs and machines.
var digestKey = []byte("scanmark page digest key v1 0000")

// Digest returns a hex HighwayHash-256 of the bitmap's size and pixels.
func Digest(img *image.RGBA) string {
	h, err := highwayhash.New(digestKey)
	if err != nil {
		// only fails for a key that is not 32 bytes long
		panic(err)
	}
	b := img.Bounds()
	var dim [8]byte
	binary.LittleEndian.PutUint32(dim[:4], uint32(b.Dx()))
	binary.LittleEndian.PutUint32(dim[4:], uint32(b.Dy()))
	_, _ = h.Write(dim[:])
	row := b.Dx() * 4
	for y := b.Min.Y; y < b.Max.Y; y++ {
		off := img.PixOffset(b.Min.X, y)
		_, _ = h.Write(img.Pix[off : off+row])
	}
	return hex.EncodeToString(h.Sum(nil))
}

// Digests hashes every page.
func Digests(pages []*image.RGBA) []string {
	out := make([]string, len(pages))
	for i, p := range pages {
		out[i] = Digest(p)
	}
	return out
}
