package scanning

// receiptScanPrompt is the shared prompt used by all vision providers
// for extracting structured data from receipts.
const receiptScanPrompt = `Analyze this receipt image and extract the following information in JSON format:
{
  "vendor": "store/merchant name",
  "date": "YYYY-MM-DD format",
  "total": number,
  "currency": "currency code (USD, EUR, etc.)",
  "taxAmount": number,
  "items": [
    {
      "description": "item name",
      "quantity": number,
      "unitPrice": number,
      "totalPrice": number
    }
  ]
}

Important rules:
1. Extract the exact vendor name from the receipt header
2. Convert any date format to YYYY-MM-DD
3. Extract the final total amount (not subtotal)
4. Identify the currency from the receipt
5. Extract tax amount if available, otherwise estimate 8% of total
6. Extract all line items with their quantities and prices
7. Ensure all amounts are numbers (not strings)
8. If any field is missing or unclear, make a reasonable estimate
9. Return ONLY the JSON object, no additional text
10. Ensure the sum of all item totalPrices equals the total amount
11. For items without quantity, assume quantity of 1
12. For items without unitPrice, calculate it as totalPrice/quantity
13. Do not use markdown code blocks`
