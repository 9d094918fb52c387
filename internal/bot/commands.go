package bot

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"unicode"

	"budgetwizard/internal/core"
)

// handleCommand dispatches slash-style commands. Each maps 1:1 onto a
// router action, so "/viewexpenses" and the bare "view" shortcut share a
// handler. Commands are recognized regardless of mode.
func (r *Router) handleCommand(ctx context.Context, user core.UserID, trimmed string) Reply {
	// The command name ends at the first whitespace of any kind; a
	// newline right after "/addmany" is how batches arrive.
	body := trimmed[1:]
	name, args := body, ""
	if i := strings.IndexFunc(body, unicode.IsSpace); i >= 0 {
		name, args = body[:i], body[i:]
	}
	name = strings.ToLower(name)
	// Group chats address commands as /cmd@botname.
	if i := strings.Index(name, "@"); i >= 0 {
		name = name[:i]
	}
	args = strings.TrimSpace(args)

	switch name {
	case "start", "help":
		r.store.ActivePeriod(user) // first contact creates the session
		return Reply{Text: menuText}
	case "addexpense":
		return r.commandAddExpense(ctx, user, args)
	case "addmany":
		if args == "" {
			return Reply{Text: addUsageText}
		}
		return r.handleAddPrefix(ctx, user, "", "add "+args)
	case "viewexpenses":
		return r.handleView(ctx, user, "", "")
	case "generatebudget":
		return r.handleBudget(ctx, user, "", "")
	case "exportexcel":
		return r.handleExport(ctx, user, "", "")
	case "unlockfull":
		return r.handleUnlock(ctx, user, "", "")
	case "reset":
		return r.handleReset(ctx, user, "", "")
	default:
		return Reply{Text: menuText}
	}
}

func (r *Router) commandAddExpense(ctx context.Context, user core.UserID, args string) Reply {
	if args == "" {
		return Reply{Text: addExpenseUsageText}
	}
	c, err := core.ParseLine(args)
	if err != nil {
		if errors.Is(err, core.ErrNotNumeric) {
			return Reply{Text: amountNotNumericText}
		}
		return Reply{Text: addExpenseUsageText}
	}
	r.store.Append(user, c.Amount, c.Category, c.Notes)
	slog.InfoContext(ctx, "Expense added", "user_id", int64(user), "category", c.Category)
	return Reply{Text: fmt.Sprintf("✅ Added $%s to '%s'. Use /viewexpenses to see totals.", c.Amount.StringFixed(2), c.Category)}
}
