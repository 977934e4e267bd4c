package ledger

import (
	"github.com/gagliardetto/solana-go"
)

// PDA seed prefixes.
var (
	SeedConfig       = []byte("config")
	SeedPool         = []byte("pool")
	SeedLaunch       = []byte("launch")
	SeedContribution = []byte("contribution")
)

// FindConfigAddress derives the config singleton address.
func FindConfigAddress(programID solana.PublicKey) (solana.PublicKey, uint8, error) {
	return solana.FindProgramAddress([][]byte{SeedConfig}, programID)
}

// FindPoolAddress derives the pool address for an ordered mint pair.
func FindPoolAddress(programID, mintA, mintB solana.PublicKey) (solana.PublicKey, uint8, error) {
	return solana.FindProgramAddress([][]byte{SeedPool, mintA.Bytes(), mintB.Bytes()}, programID)
}

func FindLaunchAddress(programID, tokenMint solana.PublicKey) (solana.PublicKey, uint8, error) {
	return solana.FindProgramAddress([][]byte{SeedLaunch, tokenMint.Bytes()}, programID)
}

func FindContributionAddress(programID, launch, participant solana.PublicKey) (solana.PublicKey, uint8, error) {
	return solana.FindProgramAddress([][]byte{SeedContribution, launch.Bytes(), participant.Bytes()}, programID)
}
