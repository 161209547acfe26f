package main

import (
	"context"
	"errors"
	"log"
	"os"
	"os/signal"
	"syscall"

	"github.com/joho/godotenv"
	"github.com/pterm/pterm"
	"github.com/pterm/pterm/putils"

	"coinflip-backend/internal/config"
	"coinflip-backend/internal/logger"
	"coinflip-backend/internal/models"
	"coinflip-backend/internal/services"
)

const (
	optionHeads      = "Heads"
	optionTails      = "Tails"
	optionPlayAgain  = "Play Again"
	optionFreeCoins  = "Get Free Coins"
	optionRefresh    = "Refresh"
	optionConnect    = "Connect Wallet"
	optionDisconnect = "Disconnect"
	optionQuit       = "Quit"
)

func main() {
	_ = godotenv.Load()

	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("Failed to load config: %v", err)
	}

	// The terminal is the UI, so only errors are logged.
	zl, err := logger.New(cfg.Env, "error")
	if err != nil {
		log.Fatalf("Failed to build logger: %v", err)
	}
	defer zl.Sync()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	wallet, err := services.DialEthereumWallet(ctx, cfg.RPCURL, nil)
	if err != nil {
		pterm.Error.Printfln("Could not reach wallet at %s: %v", cfg.RPCURL, err)
		os.Exit(1)
	}
	defer wallet.Close()

	app := services.NewApp(models.GenerateClientID(), services.AppOptions{
		TargetChainID:  cfg.TargetChainID,
		DefaultBet:     cfg.DefaultBet,
		FaucetAmount:   cfg.FaucetAmount,
		ConnectTimeout: cfg.ConnectTimeout,
		RequestTimeout: cfg.RequestTimeout,
	}, services.AppDeps{
		Wallet: wallet,
		Logger: zl,
	})
	defer app.Close()

	title, _ := pterm.DefaultBigText.WithLetters(
		putils.LettersFromStringWithStyle("Coin", pterm.FgYellow.ToStyle()),
		putils.LettersFromStringWithStyle("Flip", pterm.FgDarkGray.ToStyle()),
	).Srender()
	pterm.Print(title)
	pterm.Println()

	state := connect(ctx, app)

	for ctx.Err() == nil {
		printState(state)

		choice, _ := pterm.DefaultInteractiveSelect.
			WithDefaultText("Select your next action").
			WithOptions(options(state)).
			Show()
		pterm.Println()

		switch choice {
		case optionHeads, optionTails:
			state = placeBet(ctx, app, state, choice)
		case optionPlayAgain:
			state, err = app.Reset()
		case optionFreeCoins:
			state = requestFunds(ctx, app, state)
		case optionRefresh:
			state, err = app.RefreshNetwork(ctx)
		case optionConnect:
			state = connect(ctx, app)
		case optionDisconnect:
			state, err = app.Disconnect(ctx)
		case optionQuit:
			pterm.Println("Thank you for playing...")
			return
		}

		if err != nil {
			pterm.Error.Println(err.Error())
			err = nil
			if s, stateErr := app.State(); stateErr == nil {
				state = s
			}
		}
	}
}

func options(state services.State) []string {
	if !state.Session.IsConnected() {
		return []string{optionConnect, optionQuit}
	}

	var opts []string
	switch {
	case state.Wager.Resolved():
		opts = append(opts, optionPlayAgain)
	case state.Network != nil && state.Network.Supported:
		opts = append(opts, optionHeads, optionTails)
	}
	return append(opts, optionFreeCoins, optionRefresh, optionDisconnect, optionQuit)
}

func connect(ctx context.Context, app *services.App) services.State {
	spinner, _ := pterm.DefaultSpinner.WithRemoveWhenDone(true).Start("Waiting for the wallet to share an account...")
	state, err := app.Connect(ctx)
	spinner.Stop()

	if err != nil {
		pterm.Error.Println(err.Error())
		return state
	}
	if state.Session.Status == models.SessionFailed {
		pterm.Error.Printfln("Connection failed: %s", state.Session.Error)
	} else if state.Session.IsConnected() {
		pterm.Success.Printfln("Connected as %s", state.Session.Account)
	}
	return state
}

func placeBet(ctx context.Context, app *services.App, state services.State, option string) services.State {
	choice := models.ChoiceHeads
	if option == optionTails {
		choice = models.ChoiceTails
	}

	spinner, _ := pterm.DefaultSpinner.WithRemoveWhenDone(true).Start("Flipping the coin...")
	next, err := app.PlaceBet(ctx, choice, nil)
	spinner.Stop()

	switch {
	case errors.Is(err, services.ErrInsufficientBalance):
		pterm.Warning.Println(models.InsufficientBalanceAdvisory)
		return next
	case err != nil:
		pterm.Error.Println(err.Error())
		return state
	}

	printOutcome(next.Wager)
	return next
}

func requestFunds(ctx context.Context, app *services.App, state services.State) services.State {
	spinner, _ := pterm.DefaultSpinner.WithRemoveWhenDone(true).Start("Waiting for the transfer to be approved...")
	tx, next, err := app.RequestFunds(ctx)
	spinner.Stop()

	if err != nil {
		pterm.Error.Printfln("Could not get free coins: %v", err)
		return state
	}

	pterm.Success.Printfln("Sent %s, transaction %s", models.FormatEther(tx.Value), tx.Hash)
	return next
}
