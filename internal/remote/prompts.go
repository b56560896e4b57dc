package remote

import "fmt"

const describePrompt = `Extract all text content from this image. Focus on:
- Names of people and organizations
- Contact information (emails, phone numbers, addresses)
- Job titles and positions
- Company names and industries
- Website URLs and social media handles
- Any other relevant business information

Provide the extracted text in a structured format.`

const structurePromptTemplate = `Based on the following text, extract and structure lead information.
Identify all potential leads (people or companies) and return them as JSON.

For each lead, extract:
- name (person or company name)
- company (if it's a person, their company)
- title (job title or position)
- email (email address)
- phone (phone number)
- address (physical address)
- industry (business industry)
- website (website URL)
- social_media (social media handles as key-value pairs)
- additional_info (any other relevant information)

Text to analyze:
%s

Return a JSON array of lead objects. If no leads are found, return an empty array.
Example format:
[
  {
    "name": "John Doe",
    "company": "Tech Corp",
    "title": "Software Engineer",
    "email": "john@techcorp.com",
    "phone": "+1-555-0123",
    "address": "123 Tech Street, San Francisco, CA",
    "industry": "Technology",
    "website": "https://techcorp.com",
    "social_media": {"linkedin": "john-doe", "twitter": "@johndoe"},
    "additional_info": "Specializes in AI/ML"
  }
]`

func structurePrompt(text string) string {
	return fmt.Sprintf(structurePromptTemplate, text)
}
