package main

import (
	"github.com/pterm/pterm"

	"coinflip-backend/internal/models"
	"coinflip-backend/internal/services"
)

// printState renders the wallet box and, once a bet exists, the round box.
func printState(state services.State) {
	panels := []pterm.Panel{{Data: walletBox(state)}}
	if state.Wager.HasBet() {
		panels = append(panels, pterm.Panel{Data: roundBox(state.Wager)})
	}

	pterm.DefaultPanel.WithPanels([][]pterm.Panel{panels}).Render()

	if state.Advisory != "" {
		pterm.Warning.Println(state.Advisory)
	}
}

func walletBox(state services.State) string {
	pbox := pterm.DefaultBox.WithHorizontalPadding(4).WithTopPadding(1).WithBottomPadding(1)

	if !state.Session.IsConnected() {
		status := pterm.LightRed("Not connected")
		if state.Session.Status == models.SessionFailed {
			status += "\n" + state.Session.Error
		}
		return pbox.WithTitle("|WALLET|").WithTitleTopLeft().Sprint(status)
	}

	network := pterm.FgGray.Sprint("checking...")
	if state.Network != nil {
		if state.Network.Supported {
			network = pterm.LightGreen(state.Network.Name)
		} else {
			network = pterm.LightRed(models.ChainDisplayName(state.Network.ChainID))
		}
	}

	balance := pterm.FgGray.Sprint("unavailable")
	if state.Balance != nil {
		balance = pterm.LightCyan(models.FormatEther(*state.Balance))
	}

	return pbox.WithTitle("|WALLET|").WithTitleTopLeft().Sprintf(
		"Account: %s\nNetwork: %s\nBalance: %s\nBet: %s",
		state.Session.Account, network, balance, models.FormatEther(state.DefaultBet))
}

func roundBox(w models.Wager) string {
	pbox := pterm.DefaultBox.WithHorizontalPadding(4).WithTopPadding(1).WithBottomPadding(1)

	result := pterm.FgGray.Sprint("flipping...")
	if w.Resolved() {
		result = string(w.Result)
	}

	return pbox.WithTitle(pterm.LightYellow("|ROUND|")).WithTitleTopCenter().Sprintf(
		"Your choice: %s\nWager: %s\nResult: %s",
		w.UserChoice, models.FormatEther(w.WagerAmount), result)
}

func printOutcome(w models.Wager) {
	switch w.Outcome() {
	case models.OutcomeWin:
		pterm.Success.Printfln("The coin landed on %s. You win!", w.Result)
	case models.OutcomeLose:
		pterm.Error.Printfln("The coin landed on %s. You lose.", w.Result)
	}
}
