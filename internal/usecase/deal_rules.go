package usecase

import (
	"fmt"

	"dealroom/internal/domain/entity"
	"dealroom/pkg/errors"
)

// applyTransition moves deal to next on behalf of p, assigning p as seller
// when p accepts an open deal.
func applyTransition(deal *entity.Deal, p *entity.Principal, next entity.DealStatus) error {
	if deal.Status.IsTerminal() {
		return errors.InvalidTransition(fmt.Sprintf("Deal is already %s", deal.Status))
	}

	accepting := next == entity.DealInProgress
	if accepting && !p.IsSeller() && !p.IsAdmin() {
		return errors.InvalidTransition("Only a seller can accept a deal")
	}

	if !deal.Status.CanTransitionTo(next) {
		return errors.InvalidTransition(fmt.Sprintf("Cannot move deal from %s to %s", deal.Status, next))
	}

	claiming := accepting && deal.Seller == nil
	switch {
	case claiming && !p.IsSeller():
		return errors.InvalidTransition("A seller must accept the deal before it can start")
	case !claiming && !deal.IsParticipant(p.ID) && !p.IsAdmin():
		return errors.Forbidden("Only deal participants can change its status", nil)
	}

	if claiming {
		deal.AssignSeller(&entity.UserRef{ID: p.ID, Name: p.Name})
	}
	deal.Status = next
	return nil
}

// checkEditable guards price and detail edits.
func checkEditable(deal *entity.Deal, p *entity.Principal) error {
	if deal.Status.IsTerminal() {
		return errors.InvalidTransition(fmt.Sprintf("Deal is %s and can no longer be changed", deal.Status))
	}
	if !deal.IsParticipant(p.ID) && !p.IsAdmin() {
		return errors.Forbidden("Only deal participants can change it", nil)
	}
	return nil
}

func canAccess(deal *entity.Deal, p *entity.Principal) bool {
	return p.IsAdmin() || deal.IsParticipant(p.ID)
}

// canView also lets sellers look at deals that are waiting for a seller.
func canView(deal *entity.Deal, p *entity.Principal) bool {
	return canAccess(deal, p) || (p.IsSeller() && deal.IsOpen())
}

func statusMessage(deal *entity.Deal, actor *entity.Principal) string {
	switch deal.Status {
	case entity.DealInProgress:
		return fmt.Sprintf("%s accepted the deal \"%s\"", actor.Name, deal.Title)
	case entity.DealCompleted:
		return fmt.Sprintf("The deal \"%s\" has been completed", deal.Title)
	case entity.DealCancelled:
		return fmt.Sprintf("%s cancelled the deal \"%s\"", actor.Name, deal.Title)
	}
	return fmt.Sprintf("The deal \"%s\" is now %s", deal.Title, deal.Status)
}
