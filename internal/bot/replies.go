package bot

// Canned reply texts. Keyword shortcuts are advertised without slashes
// because they work as bare words in any mode.
const (
	menuText = "Welcome to Budget Wizard 🧙\n\n" +
		"Commands:\n" +
		"/addexpense <amount> <category> [notes]\n" +
		"  e.g. /addexpense 12.50 groceries milk and bread\n" +
		"/addmany <one expense per line>\n" +
		"/viewexpenses - Summary of your expenses\n" +
		"/generatebudget - Simple budget snapshot\n" +
		"/exportexcel - Download your expenses as a spreadsheet\n" +
		"/unlockfull - Pay $1 to unlock the full export\n" +
		"/reset - Start a fresh month\n" +
		"/help - Show this menu again"

	greetingText = "Great! Send expenses like: 12.50 groceries notes\n" +
		"Say done when finished.\n" +
		"Shortcuts: view, generate, export, unlock."

	exitText = "Okay. You can type view, generate, or export anytime."

	resetText = "Fresh month started. Your ledger is empty - send expenses like 12.50 groceries lunch."

	noExpensesText = "No expenses yet. Add one with: add 12.50 groceries"

	noDataText = "No data yet. Add expenses first."

	noExportText = "No expenses yet to export."

	exportFailedText = "⚠️ Could not build the export file. Try again later."

	paymentsDisabledText = "Payments are not configured on this bot."

	addUsageText = "Usage: add <amount> <category> [notes]"

	addExpenseUsageText = "Usage: /addexpense <amount> <category> [notes]"

	amountNotNumericText = "Amount must be a number. Example: /addexpense 9.99 coffee"

	formatHintText = "Send an expense like 12.50 groceries lunch or type done.\n" +
		"Shortcuts: view, generate, export."

	helpHint = "Try: hi to start adding, add 12 coffee, view, generate, export, or unlock."
)
