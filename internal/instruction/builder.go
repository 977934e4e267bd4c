package instruction

import (
	"github.com/gagliardetto/solana-go"
)

func signer(pk solana.PublicKey, writable bool) *solana.AccountMeta {
	return &solana.AccountMeta{PublicKey: pk, IsSigner: true, IsWritable: writable}
}

func writable(pk solana.PublicKey) *solana.AccountMeta {
	return &solana.AccountMeta{PublicKey: pk, IsWritable: true}
}

func readonly(pk solana.PublicKey) *solana.AccountMeta {
	return &solana.AccountMeta{PublicKey: pk}
}

func build(programID solana.PublicKey, ix Instruction, accounts []*solana.AccountMeta) (solana.Instruction, error) {
	data, err := Encode(ix)
	if err != nil {
		return nil, err
	}
	return solana.NewInstruction(programID, accounts, data), nil
}

type InitializeConfigAccounts struct {
	Admin     solana.PublicKey
	Config    solana.PublicKey
	QuoteMint solana.PublicKey
	Treasury  solana.PublicKey
}

func NewInitializeConfig(programID solana.PublicKey, a InitializeConfigAccounts, args InitializeConfig) (solana.Instruction, error) {
	return build(programID, &args, []*solana.AccountMeta{
		signer(a.Admin, true),
		writable(a.Config),
		readonly(a.QuoteMint),
		writable(a.Treasury),
		readonly(solana.SystemProgramID),
	})
}

type CreatePoolAccounts struct {
	Authority solana.PublicKey
	Pool      solana.PublicKey
	MintA     solana.PublicKey
	MintB     solana.PublicKey
	VaultA    solana.PublicKey
	VaultB    solana.PublicKey
	LpMint    solana.PublicKey
	Config    solana.PublicKey
}

func NewCreatePool(programID solana.PublicKey, a CreatePoolAccounts, args CreatePool) (solana.Instruction, error) {
	return build(programID, &args, []*solana.AccountMeta{
		signer(a.Authority, true),
		writable(a.Pool),
		readonly(a.MintA),
		readonly(a.MintB),
		writable(a.VaultA),
		writable(a.VaultB),
		writable(a.LpMint),
		readonly(a.Config),
		readonly(solana.SystemProgramID),
	})
}

type AddLiquidityAccounts struct {
	User   solana.PublicKey
	Pool   solana.PublicKey
	Config solana.PublicKey
	UserA  solana.PublicKey
	UserB  solana.PublicKey
	VaultA solana.PublicKey
	VaultB solana.PublicKey
	LpMint solana.PublicKey
	UserLp solana.PublicKey
}

func NewAddLiquidity(programID solana.PublicKey, a AddLiquidityAccounts, args AddLiquidity) (solana.Instruction, error) {
	return build(programID, &args, []*solana.AccountMeta{
		signer(a.User, false),
		writable(a.Pool),
		readonly(a.Config),
		writable(a.UserA),
		writable(a.UserB),
		writable(a.VaultA),
		writable(a.VaultB),
		writable(a.LpMint),
		writable(a.UserLp),
		readonly(solana.TokenProgramID),
	})
}

type RemoveLiquidityAccounts struct {
	User   solana.PublicKey
	Pool   solana.PublicKey
	UserA  solana.PublicKey
	UserB  solana.PublicKey
	VaultA solana.PublicKey
	VaultB solana.PublicKey
	LpMint solana.PublicKey
	UserLp solana.PublicKey
}

func NewRemoveLiquidity(programID solana.PublicKey, a RemoveLiquidityAccounts, args RemoveLiquidity) (solana.Instruction, error) {
	return build(programID, &args, []*solana.AccountMeta{
		signer(a.User, false),
		writable(a.Pool),
		writable(a.UserA),
		writable(a.UserB),
		writable(a.VaultA),
		writable(a.VaultB),
		writable(a.LpMint),
		writable(a.UserLp),
		readonly(solana.TokenProgramID),
	})
}

// SwapAccounts name the vaults by direction: SourceVault receives the input.
type SwapAccounts struct {
	User             solana.PublicKey
	Pool             solana.PublicKey
	UserSource       solana.PublicKey
	UserDestination  solana.PublicKey
	SourceVault      solana.PublicKey
	DestinationVault solana.PublicKey
}

func NewSwap(programID solana.PublicKey, a SwapAccounts, args Swap) (solana.Instruction, error) {
	return build(programID, &args, []*solana.AccountMeta{
		signer(a.User, false),
		writable(a.Pool),
		writable(a.UserSource),
		writable(a.UserDestination),
		writable(a.SourceVault),
		writable(a.DestinationVault),
		readonly(solana.TokenProgramID),
	})
}

type LaunchTokenAccounts struct {
	Launcher      solana.PublicKey
	Launch        solana.PublicKey
	TokenMint     solana.PublicKey
	Config        solana.PublicKey
	LauncherQuote solana.PublicKey
	Treasury      solana.PublicKey
	LauncherToken solana.PublicKey
	TokenVault    solana.PublicKey
	QuoteVault    solana.PublicKey
}

func NewLaunchToken(programID solana.PublicKey, a LaunchTokenAccounts, args LaunchToken) (solana.Instruction, error) {
	return build(programID, &args, []*solana.AccountMeta{
		signer(a.Launcher, true),
		writable(a.Launch),
		readonly(a.TokenMint),
		readonly(a.Config),
		writable(a.LauncherQuote),
		writable(a.Treasury),
		writable(a.LauncherToken),
		writable(a.TokenVault),
		writable(a.QuoteVault),
		readonly(solana.TokenProgramID),
	})
}

type ParticipateAccounts struct {
	Participant      solana.PublicKey
	Launch           solana.PublicKey
	Contribution     solana.PublicKey
	ParticipantQuote solana.PublicKey
	QuoteVault       solana.PublicKey
}

func NewParticipateInLaunch(programID solana.PublicKey, a ParticipateAccounts, args ParticipateInLaunch) (solana.Instruction, error) {
	return build(programID, &args, []*solana.AccountMeta{
		signer(a.Participant, true),
		writable(a.Launch),
		writable(a.Contribution),
		writable(a.ParticipantQuote),
		writable(a.QuoteVault),
		readonly(solana.TokenProgramID),
	})
}

type FinalizeAccounts struct {
	Launcher solana.PublicKey
	Launch   solana.PublicKey
}

func NewFinalizeTokenLaunch(programID solana.PublicKey, a FinalizeAccounts) (solana.Instruction, error) {
	return build(programID, &FinalizeTokenLaunch{}, []*solana.AccountMeta{
		signer(a.Launcher, false),
		writable(a.Launch),
	})
}

// CloseLaunchAccounts is the launcher path of CloseTokenLaunch.
type CloseLaunchAccounts struct {
	Launcher      solana.PublicKey
	Launch        solana.PublicKey
	QuoteVault    solana.PublicKey
	TokenVault    solana.PublicKey
	LauncherQuote solana.PublicKey
	LauncherToken solana.PublicKey
}

func NewCloseTokenLaunch(programID solana.PublicKey, a CloseLaunchAccounts) (solana.Instruction, error) {
	return build(programID, &CloseTokenLaunch{}, []*solana.AccountMeta{
		signer(a.Launcher, false),
		writable(a.Launch),
		writable(a.QuoteVault),
		writable(a.TokenVault),
		writable(a.LauncherQuote),
		writable(a.LauncherToken),
		readonly(solana.TokenProgramID),
	})
}

// SettleAccounts is the participant path of CloseTokenLaunch; it is told apart
// from the launcher path by the extra contribution account.
type SettleAccounts struct {
	Participant      solana.PublicKey
	Launch           solana.PublicKey
	Contribution     solana.PublicKey
	QuoteVault       solana.PublicKey
	TokenVault       solana.PublicKey
	ParticipantQuote solana.PublicKey
	ParticipantToken solana.PublicKey
}

func NewSettleContribution(programID solana.PublicKey, a SettleAccounts) (solana.Instruction, error) {
	return build(programID, &CloseTokenLaunch{}, []*solana.AccountMeta{
		signer(a.Participant, false),
		writable(a.Launch),
		writable(a.Contribution),
		writable(a.QuoteVault),
		writable(a.TokenVault),
		writable(a.ParticipantQuote),
		writable(a.ParticipantToken),
		readonly(solana.TokenProgramID),
	})
}

type WithdrawFeesAccounts struct {
	Admin       solana.PublicKey
	Config      solana.PublicKey
	Treasury    solana.PublicKey
	Destination solana.PublicKey
}

func NewWithdrawFees(programID solana.PublicKey, a WithdrawFeesAccounts, args WithdrawFees) (solana.Instruction, error) {
	return build(programID, &args, []*solana.AccountMeta{
		signer(a.Admin, false),
		readonly(a.Config),
		writable(a.Treasury),
		writable(a.Destination),
		readonly(solana.TokenProgramID),
	})
}

// UpdateConfigAccounts.NewAdmin, when set, hands admin rights over. The new
// admin must sign the transaction as well.
type UpdateConfigAccounts struct {
	Admin    solana.PublicKey
	Config   solana.PublicKey
	NewAdmin *solana.PublicKey
}

func NewUpdateConfig(programID solana.PublicKey, a UpdateConfigAccounts, args UpdateConfig) (solana.Instruction, error) {
	metas := []*solana.AccountMeta{
		signer(a.Admin, false),
		writable(a.Config),
	}
	if a.NewAdmin != nil {
		metas = append(metas, signer(*a.NewAdmin, false))
	}
	return build(programID, &args, metas)
}
