package analysis

// ProductPrompt asks the model for the layout Parse understands.
const ProductPrompt = `Analyze this product image. Provide a detailed analysis and 5 product recommendations following this exact format:

BEGIN_ANALYSIS
Product Name: [exact product name]
Category: [main category]
Subcategory: [sub category]
Description: [2-3 sentences about the product]
Price Range: [estimated price range]
Key Features:
- [feature 1]
- [feature 2]
- [feature 3]

Recommendations:
1. [Product 1 Name]
   - Price: [Price]
   - Key Similarities: [2-3 key matching features]
2. [Product 2 Name]
   - Price: [Price]
   - Key Similarities: [2-3 key matching features]
3. [Product 3 Name]
   - Price: [Price]
   - Key Similarities: [2-3 key matching features]
4. [Product 4 Name]
   - Price: [Price]
   - Key Similarities: [2-3 key matching features]
5. [Product 5 Name]
   - Price: [Price]
   - Key Similarities: [2-3 key matching features]
END_ANALYSIS`
