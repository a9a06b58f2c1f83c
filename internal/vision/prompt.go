package vision

const receiptPrompt = `You are reading a UAE bank deposit receipt. Extract:
1. Deposit Date - the date the deposit was made, as DD/MM/YYYY.
2. Amount in AED - the total deposit amount.
3. Bank Account Number - the exact account number, keeping dashes, spaces and masking characters.
4. Bank Account Name - the NAME OF THE BANK (e.g. UNITED ARAB BANK), not the depositing company.
5. Reference Number - may be labeled SEQUENCE, REF NO or TRANSACTION ID.

Copy text exactly as printed; do not correct spelling or reformat numbers.
If a field is not on the receipt, use the value "Not mentioned".

Respond with ONLY this JSON object and nothing else:
{
  "deposit_date": "DD/MM/YYYY",
  "amount_aed": "XX,XXX.XX",
  "bank_account_number": "XXXXXXXX",
  "bank_account_name": "NAME OF THE BANK",
  "reference_number": "XXXXXXX"
}`
