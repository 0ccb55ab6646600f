package main

import (
	"fmt"

	"xdao.co/bloom/archive"
	"xdao.co/bloom/canonical"
	"xdao.co/bloom/digest"
	"xdao.co/bloom/envelope"
)

func main() {
	content := []byte("hello")
	h := digest.Bytes(content)

	e, err := envelope.Build(nil, []envelope.Fingerprint{envelope.NewFingerprint(h, "f.bin")})
	if err != nil {
		panic(err)
	}

	unsealed := e.Members()
	delete(unsealed, "eternal_seal")
	preimage, err := canonical.Marshal(unsealed)
	if err != nil {
		panic(err)
	}

	doc, err := envelope.Marshal(e)
	if err != nil {
		panic(err)
	}
	stored, err := archive.EnvelopeBytes(e)
	if err != nil {
		panic(err)
	}
	target, err := archive.TargetCID(e.ExternalFingerprints[0])
	if err != nil {
		panic(err)
	}
	if !envelope.VerifySeal(e) {
		panic("generated envelope does not verify")
	}

	fmt.Printf("DIGEST=%s\n", h)
	fmt.Printf("SEAL=%s\n", e.EternalSeal)
	fmt.Printf("TARGET_CID=%s\n", target)
	fmt.Printf("PREIMAGE=%s\n", preimage)
	fmt.Printf("STORED=%s\n", stored)
	fmt.Printf("---BEGIN---\n%s---END---\n", doc)
}
